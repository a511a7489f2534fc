package client

import (
	"fmt"
	"strings"

	"github.com/dbusgen/dbusgen/gen/dialect"
	"github.com/dbusgen/dbusgen/introspect"
	"github.com/dbusgen/dbusgen/serviceconfig"
)

// objectManagerXML describes the standard org.freedesktop.DBus.ObjectManager
// interface. GenerateObjectManager feeds it through the same Parse,
// Validate, SyncCall and Signal pipeline used for every interface an
// input file declares, rather than hand-rolling GetManagedObjects'
// a{oa{sa{sv}}} return value or InterfacesAdded/InterfacesRemoved's
// demarshalling by hand: any future change to this generator's compound-
// type handling applies here for free.
const objectManagerXML = `<node>
  <interface name="org.freedesktop.DBus.ObjectManager">
    <method name="GetManagedObjects">
      <arg name="objects" type="a{oa{sa{sv}}}" direction="out"/>
    </method>
    <signal name="InterfacesAdded">
      <arg name="object" type="o"/>
      <arg name="interfaces" type="a{sa{sv}}"/>
    </signal>
    <signal name="InterfacesRemoved">
      <arg name="object" type="o"/>
      <arg name="interfaces" type="as"/>
    </signal>
  </interface>
</node>`

// syntheticClientType is the receiver type name SyncCall and Signal
// derive from objectManagerXML's interface name; GenerateObjectManager
// renames it to the caller's configured proxy type.
const syntheticClientType = "ObjectManagerClient"

// GenerateObjectManager composes a client proxy type for the standard
// ObjectManager interface, bound to the fixed object path om.ObjectPath
// rather than one supplied at construction time — the way the teacher's
// ObjectManagerProxy template parameterized a single proxy per remote
// service rather than per object. It returns an empty string, with no
// error, when om.Name is empty (object-manager generation is off).
func GenerateObjectManager(om serviceconfig.ObjectManagerConfig, d dialect.Descriptor) (string, error) {
	if om.Name == "" {
		return "", nil
	}

	doc, err := introspect.Parse([]byte(objectManagerXML))
	if err != nil {
		return "", fmt.Errorf("generating %s: internal object manager interface: %w", om.Name, err)
	}
	if err := introspect.Validate(doc, "<object manager>", []byte(objectManagerXML)); err != nil {
		return "", fmt.Errorf("generating %s: internal object manager interface: %w", om.Name, err)
	}
	itf := &doc.Interfaces[0]

	var b strings.Builder
	fmt.Fprintf(&b, "// %s is a proxy for the standard\n", om.Name)
	fmt.Fprintf(&b, "// org.freedesktop.DBus.ObjectManager interface of a single remote\n")
	fmt.Fprintf(&b, "// object, bound to the fixed object path %q.\n", om.ObjectPath)
	fmt.Fprintf(&b, "type %s struct {\n\tconn %s.ClientConn\n}\n\n", om.Name, d.Package())
	fmt.Fprintf(&b, "func New%s(conn %s.ClientConn) *%s {\n\treturn &%s{conn: conn}\n}\n\n", om.Name, d.Package(), om.Name, om.Name)
	fmt.Fprintf(&b, "func (c *%s) path() %s.ObjectPath { return %s.ObjectPath(%q) }\n\n", om.Name, d.Package(), d.Package(), om.ObjectPath)

	method := itf.Methods[0]
	stub, err := SyncCall(itf.Name, &method, d)
	if err != nil {
		return "", err
	}
	b.WriteString(renameObjectManagerProxy(stub.Source, om.Name))
	b.WriteString("\n")

	for i := range itf.Signals {
		stub, err := Signal(itf.Name, &itf.Signals[i], d)
		if err != nil {
			return "", err
		}
		b.WriteString(renameObjectManagerProxy(stub.Source, om.Name))
		b.WriteString("\n")
	}

	return b.String(), nil
}

// renameObjectManagerProxy rewrites src, a SyncCall/Signal stub generated
// against the synthetic interface name in objectManagerXML, to use name
// as its receiver type and the proxy's fixed path() accessor in place of
// the generic "c.path" field access GenerateObjectManager's struct has
// no field for.
func renameObjectManagerProxy(src, name string) string {
	src = strings.ReplaceAll(src, syntheticClientType, name)
	return strings.ReplaceAll(src, "c.path", "c.path()")
}
