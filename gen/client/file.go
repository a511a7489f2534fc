package client

import (
	"fmt"
	"strings"

	"github.com/dbusgen/dbusgen/gen/dialect"
	"github.com/dbusgen/dbusgen/genutil"
	"github.com/dbusgen/dbusgen/introspect"
)

// GenerateFile assembles a complete Go source file implementing the
// client (proxy) side of every interface in doc: for each interface, a
// Client type holding a ClientConn and an object path, a constructor,
// and the property-get/set, sync-or-async method-call and signal
// registration methods from PropertyGet, PropertySet, SyncCall,
// AsyncCall and Signal.
func GenerateFile(pkg string, doc *introspect.Document, d dialect.Descriptor) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by dbusgen. DO NOT EDIT.\n\npackage %s\n\n", pkg)
	fmt.Fprintf(&b, "import (\n\t\"context\"\n\t\"errors\"\n\n\t\"github.com/dbusgen/dbusgen/%s\"\n)\n\n", d.Package())

	for _, itf := range doc.Interfaces {
		if err := writeInterfaceClient(&b, &itf, d); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func writeInterfaceClient(b *strings.Builder, itf *introspect.Interface, d dialect.Descriptor) error {
	clientType := genutil.ClientTypeName(itf.Name)

	fmt.Fprintf(b, "// %s is a proxy for the %s interface of a single remote\n", clientType, itf.Name)
	fmt.Fprintf(b, "// object.\n")
	fmt.Fprintf(b, "type %s struct {\n\tconn %s.ClientConn\n\tpath %s.ObjectPath\n}\n\n", clientType, d.Package(), d.Package())
	fmt.Fprintf(b, "func New%s(conn %s.ClientConn, path %s.ObjectPath) *%s {\n\treturn &%s{conn: conn, path: path}\n}\n\n",
		clientType, d.Package(), d.Package(), clientType, clientType)

	for _, p := range itf.Properties {
		access := introspect.Access(p.Access)
		if access.Readable() {
			stub, err := PropertyGet(itf.Name, &p, d)
			if err != nil {
				return err
			}
			b.WriteString(stub.Source)
			b.WriteString("\n")
		}
		if access.Writable() {
			stub, err := PropertySet(itf.Name, &p, d)
			if err != nil {
				return err
			}
			b.WriteString(stub.Source)
			b.WriteString("\n")
		}
	}

	for _, m := range itf.Methods {
		var src string
		if m.Kind() == introspect.MethodKindAsync {
			stub, err := AsyncCall(itf.Name, &m, d)
			if err != nil {
				return err
			}
			src = stub.Source
		} else {
			stub, err := SyncCall(itf.Name, &m, d)
			if err != nil {
				return err
			}
			src = stub.Source
		}
		b.WriteString(src)
		b.WriteString("\n")
	}

	for _, s := range itf.Signals {
		stub, err := Signal(itf.Name, &s, d)
		if err != nil {
			return err
		}
		b.WriteString(stub.Source)
		b.WriteString("\n")
	}

	return nil
}
