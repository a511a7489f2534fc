// Package dialect defines the target-language descriptor that the stub
// composers are handed. Only one concrete Descriptor, Go, ships with this
// generator. The composers in gen/marshal, gen/demarshal, gen/server and
// gen/client call only its Package method, to qualify runtime names; they
// write Go syntax, dbusrt Iter method calls and container open/close
// statements themselves, and Go type names come from dbustype.Type.GoType.
package dialect

// Descriptor supplies target-language names: the runtime package, the
// runtime wire types, the error expressions and the iterator type. It has
// no method for container open/close statements, and only Package is
// called by the composers in this module.
type Descriptor interface {
	// Package returns the import-qualified name the runtime support
	// package is referred to by in emitted code, e.g. "dbusrt".
	Package() string

	// RuntimeType returns the qualified type name for one of the
	// runtime-provided wire types: "ObjectPath", "Signature", "Variant"
	// or "FD".
	RuntimeType(name string) string

	// NoMemoryError returns an expression evaluating to the error value
	// a fragment's out-of-memory recovery branch should return.
	NoMemoryError() string

	// TypeMismatchError returns an expression evaluating to the error
	// value a fragment's type-mismatch recovery branch should return,
	// given the expected and actual wire type signatures.
	TypeMismatchError(expected, got string) string

	// IterType returns the qualified type name of the message-iterator
	// type marshal/demarshal fragments take as a parameter.
	IterType() string
}
