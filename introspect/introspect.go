// Package introspect provides the typed interface model — Interface,
// Method, Signal, Property, Argument — produced by parsing a D-Bus
// introspection XML document, along with the validation that must pass
// before the model is handed to the code generator.
package introspect

import "github.com/dbusgen/dbusgen/dbustype"

// Annotation is a generic name/value pair attached to a Method, Signal,
// Property or Argument.
type Annotation struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Direction is the direction of a method argument.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Argument is a single method, signal or reply argument.
type Argument struct {
	Name        string       `xml:"name,attr"`
	Type        string       `xml:"type,attr"`
	Direction   string       `xml:"direction,attr"`
	Annotations []Annotation `xml:"annotation"`

	parsedType *dbustype.Type
}

// ParsedType returns the parsed form of a.Type. It is only valid after the
// owning Document has passed Validate.
func (a *Argument) ParsedType() *dbustype.Type { return a.parsedType }

// Deprecated reports whether a carries org.freedesktop.DBus.Deprecated=true.
func (a *Argument) Deprecated() bool { return annotationBool(a.Annotations, annoDeprecated) }

// MethodKind classifies the reply contract of a Method.
//
// This adapts the upstream generator's MethodKindSimple/Normal/Async/Raw
// distinction to the sync/async wire contract this generator actually
// implements: Simple (a method with no explicit reply semantics beyond a
// bare C return value) and Raw (a method that takes over the raw D-Bus
// message itself) both belong to a transport model this generator does not
// target, so only three kinds survive here.
type MethodKind int

const (
	// MethodKindNormal is a request/reply method: the client stub blocks
	// for a reply and the server stub sends one.
	MethodKindNormal MethodKind = iota
	// MethodKindNoReply is fire-and-forget: no reply is awaited or sent,
	// and the method may not declare any out arguments.
	MethodKindNoReply
	// MethodKindAsync is a method whose client stub returns a cancellable
	// handle immediately and invokes a continuation when the reply (or a
	// failure) arrives.
	MethodKindAsync
)

func (k MethodKind) String() string {
	switch k {
	case MethodKindNormal:
		return "normal"
	case MethodKindNoReply:
		return "noreply"
	case MethodKindAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Method is a single method member of an Interface.
type Method struct {
	Name        string       `xml:"name,attr"`
	Symbol      string       `xml:"-"`
	Args        []Argument   `xml:"arg"`
	Annotations []Annotation `xml:"annotation"`
}

// InputArguments returns the Args with Direction "in" or unset (the
// default direction for a method argument is "in").
func (m *Method) InputArguments() []Argument {
	var out []Argument
	for _, a := range m.Args {
		if a.Direction == string(DirectionIn) || a.Direction == "" {
			out = append(out, a)
		}
	}
	return out
}

// OutputArguments returns the Args with Direction "out".
func (m *Method) OutputArguments() []Argument {
	var out []Argument
	for _, a := range m.Args {
		if a.Direction == string(DirectionOut) {
			out = append(out, a)
		}
	}
	return out
}

// Kind derives the MethodKind from m's annotations.
func (m *Method) Kind() MethodKind {
	if annotationBool(m.Annotations, annoNoReply) {
		return MethodKindNoReply
	}
	if annotationBool(m.Annotations, annoAsync) {
		return MethodKindAsync
	}
	return MethodKindNormal
}

// Deprecated reports whether m carries org.freedesktop.DBus.Deprecated=true.
func (m *Method) Deprecated() bool { return annotationBool(m.Annotations, annoDeprecated) }

// Signal is a single signal member of an Interface. All of its Args are
// implicitly Direction "out".
type Signal struct {
	Name        string       `xml:"name,attr"`
	Symbol      string       `xml:"-"`
	Args        []Argument   `xml:"arg"`
	Annotations []Annotation `xml:"annotation"`
}

// Deprecated reports whether s carries org.freedesktop.DBus.Deprecated=true.
func (s *Signal) Deprecated() bool { return annotationBool(s.Annotations, annoDeprecated) }

// Access is the read/write contract of a Property.
type Access string

const (
	AccessRead      Access = "read"
	AccessWrite     Access = "write"
	AccessReadWrite Access = "readwrite"
)

// Readable reports whether a allows the Properties.Get stub to be emitted.
func (a Access) Readable() bool { return a == AccessRead || a == AccessReadWrite }

// Writable reports whether a allows the Properties.Set stub to be emitted.
func (a Access) Writable() bool { return a == AccessWrite || a == AccessReadWrite }

// ChangeSignalBehavior is the org.freedesktop.DBus.Property.EmitsChangedSignal
// annotation value, describing whether and how the property's object
// emits PropertiesChanged. The stub generators do not consult it: no
// client subscription helper or value cache is generated for any value.
type ChangeSignalBehavior int

const (
	// ChangeSignalTrue is the default: the property emits
	// PropertiesChanged with the new value included.
	ChangeSignalTrue ChangeSignalBehavior = iota
	// ChangeSignalFalse: the property never emits PropertiesChanged.
	ChangeSignalFalse
	// ChangeSignalInvalidates: PropertiesChanged fires but omits the new
	// value, so a subscriber must re-Get it.
	ChangeSignalInvalidates
	// ChangeSignalConst: the property's value cannot change after the
	// object is created.
	ChangeSignalConst
)

// Property is a single property member of an Interface.
type Property struct {
	Name        string       `xml:"name,attr"`
	Symbol      string       `xml:"-"`
	Type        string       `xml:"type,attr"`
	Access      string       `xml:"access,attr"`
	Annotations []Annotation `xml:"annotation"`

	parsedType *dbustype.Type
}

// ParsedType returns the parsed form of p.Type. Only valid once the owning
// Document has passed Validate.
func (p *Property) ParsedType() *dbustype.Type { return p.parsedType }

// Deprecated reports whether p carries org.freedesktop.DBus.Deprecated=true.
func (p *Property) Deprecated() bool { return annotationBool(p.Annotations, annoDeprecated) }

// EmitsChangedSignal derives the ChangeSignalBehavior from p's annotations.
func (p *Property) EmitsChangedSignal() ChangeSignalBehavior {
	for _, a := range p.Annotations {
		if a.Name != annoEmitsChangedSignal {
			continue
		}
		switch a.Value {
		case "false":
			return ChangeSignalFalse
		case "invalidates":
			return ChangeSignalInvalidates
		case "const":
			return ChangeSignalConst
		}
	}
	return ChangeSignalTrue
}

// Interface is a named collection of Methods, Signals and Properties that
// a remote object implements.
type Interface struct {
	Name        string       `xml:"name,attr"`
	Symbol      string       `xml:"-"`
	Methods     []Method     `xml:"method"`
	Signals     []Signal     `xml:"signal"`
	Properties  []Property   `xml:"property"`
	Annotations []Annotation `xml:"annotation"`
}

// Deprecated reports whether itf carries org.freedesktop.DBus.Deprecated=true.
func (itf *Interface) Deprecated() bool { return annotationBool(itf.Annotations, annoDeprecated) }

// Document is the root of a parsed introspection XML document: the
// <node> element and its <interface> children.
type Document struct {
	Name       string      `xml:"name,attr"`
	Interfaces []Interface `xml:"interface"`
}

const (
	annoDeprecated          = "org.freedesktop.DBus.Deprecated"
	annoNoReply             = "org.freedesktop.DBus.Method.NoReply"
	annoAsync               = "org.chromium.DBus.Method.Async"
	annoEmitsChangedSignal  = "org.freedesktop.DBus.Property.EmitsChangedSignal"
	annoSymbol              = "Symbol"
)

func annotationBool(as []Annotation, name string) bool {
	for _, a := range as {
		if a.Name == name {
			return a.Value == "true"
		}
	}
	return false
}

func annotationValue(as []Annotation, name string) (string, bool) {
	for _, a := range as {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
