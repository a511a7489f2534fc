package dbustype

import (
	"fmt"
	"strings"
)

// Direction distinguishes the Go type used when a value is being read out
// of a message from the type used when a value is being appended into one.
// Every kind, UnixFD included (dbusrt.FD), currently maps to the same Go
// type in both directions.
type Direction int

const (
	// DirectionExtract is used when reading a value out of an inbound
	// message (demarshalling).
	DirectionExtract Direction = iota
	// DirectionAppend is used when writing a value into an outbound
	// message (marshalling).
	DirectionAppend
)

// Receiver identifies which half of a binding a type is being mapped for:
// the server-side object implementation, or the client-side proxy. It
// exists for parity with the direction a type is read in each role: a
// server receives inputs (extract) and produces outputs (append); a proxy
// does the reverse.
type Receiver int

const (
	ReceiverServer Receiver = iota
	ReceiverClient
)

// GoType returns the Go source expression for the natural value type of t.
// This is the type used for local variables, struct fields and slice/map
// elements; see InArgType and OutArgType for the parameter-passing forms.
func (t *Type) GoType(dir Direction) string {
	switch t.kind {
	case Byte:
		return "byte"
	case Boolean:
		return "bool"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	case Uint64:
		return "uint64"
	case Double:
		return "float64"
	case String:
		return "string"
	case ObjectPath:
		return "dbusrt.ObjectPath"
	case Signature:
		return "dbusrt.Signature"
	case UnixFD:
		return "dbusrt.FD"
	case Variant:
		return "dbusrt.Variant"
	case Array:
		if t.Elem.kind == DictEntry {
			return fmt.Sprintf("map[%s]%s", t.Elem.Key.GoType(dir), t.Elem.Elem.GoType(dir))
		}
		return "[]" + t.Elem.GoType(dir)
	case DictEntry:
		// Only ever reached via the Array case above; defensive fallback
		// for callers that walk Fields/Elem directly.
		return fmt.Sprintf("map[%s]%s", t.Key.GoType(dir), t.Elem.GoType(dir))
	case Struct:
		return t.structLiteral(dir)
	default:
		return "any"
	}
}

// structLiteral renders an anonymous struct type with one positionally
// named field per entry of Fields, e.g. "struct{ F0 int32; F1 string }".
// The D-Bus wire format carries no field names for structs, so positional
// names are the only ones available to the generator; a caller that wants
// a named type (e.g. to generate a doc comment per field) can always
// declare a named type whose underlying type is this literal.
func (t *Type) structLiteral(dir Direction) string {
	var b strings.Builder
	b.WriteString("struct{ ")
	for i, f := range t.Fields {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "F%d %s", i, f.GoType(dir))
	}
	b.WriteString(" }")
	return b.String()
}

// InArgType returns the Go type used for an input parameter: the natural
// value type, unmodified. Unlike the C++ generator this is based on, Go has
// no const-reference parameter form to choose between scalars and
// aggregates; slices, maps and the runtime wrapper types are already
// reference-like, so passing the natural value type by value is both
// correct and idiomatic.
func (t *Type) InArgType(receiver Receiver) string {
	var dir Direction
	switch receiver {
	case ReceiverServer:
		dir = DirectionExtract
	case ReceiverClient:
		dir = DirectionAppend
	}
	return t.GoType(dir)
}

// OutArgType returns the Go type used for an output parameter: a pointer to
// the natural value type, so the stub composers can write through it.
func (t *Type) OutArgType(receiver Receiver) string {
	var dir Direction
	switch receiver {
	case ReceiverServer:
		dir = DirectionAppend
	case ReceiverClient:
		dir = DirectionExtract
	}
	return "*" + t.GoType(dir)
}
