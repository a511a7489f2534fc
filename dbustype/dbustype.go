// Package dbustype parses D-Bus type signatures and maps them onto the Go
// types the generator emits for marshalled/demarshalled values.
//
// A D-Bus signature is a string of complete types, each drawn from the
// grammar: a single basic-type code; "a" followed by a complete type
// (array); "(" one-or-more complete types ")" (struct); "{" basic-type
// complete-type "}" (dict entry, legal only as the immediate element of an
// array); or "v" (variant). Parse consumes exactly one complete type and
// reports any trailing input as an error, matching the "single complete
// type" requirement on Argument.Type and Property.Type.
package dbustype

import (
	"fmt"
	"strings"
)

// Kind identifies which branch of the D-Bus type grammar a Type occupies.
type Kind int

const (
	Byte Kind = iota
	Boolean
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Double
	String
	ObjectPath
	Signature
	UnixFD
	Variant
	Array
	Struct
	DictEntry
)

// basicCodes maps a signature byte to the Kind it introduces, for every
// basic (non-container) D-Bus type.
var basicCodes = map[byte]Kind{
	'y': Byte,
	'b': Boolean,
	'n': Int16,
	'q': Uint16,
	'i': Int32,
	'u': Uint32,
	'x': Int64,
	't': Uint64,
	'd': Double,
	's': String,
	'o': ObjectPath,
	'g': Signature,
	'h': UnixFD,
}

// Type is a single complete D-Bus type, as produced by Parse.
type Type struct {
	kind Kind

	// Elem is the array element type (Kind == Array) or the dict-entry
	// value type (Kind == DictEntry).
	Elem *Type
	// Key is the dict-entry key type (Kind == DictEntry only); it is
	// always a basic type per the grammar.
	Key *Type
	// Fields holds the ordered field types of a struct (Kind == Struct).
	Fields []*Type
}

// Kind reports which grammar production produced t.
func (t *Type) Kind() Kind { return t.kind }

// IsBasic reports whether t is a scalar or string-like basic type (i.e. not
// a container: array, struct, dict entry or variant).
func (t *Type) IsBasic() bool {
	switch t.kind {
	case Array, Struct, DictEntry, Variant:
		return false
	default:
		return true
	}
}

// IsScalar reports whether t is a fixed-width numeric or boolean type, as
// opposed to a string-like basic type (string, object path, signature) or a
// container.
func (t *Type) IsScalar() bool {
	switch t.kind {
	case Byte, Boolean, Int16, Uint16, Int32, Uint32, Int64, Uint64, Double, UnixFD:
		return true
	default:
		return false
	}
}

// IsDictArray reports whether t is an array whose element is a dict entry,
// the only place the grammar permits a dict entry to occur.
func (t *Type) IsDictArray() bool {
	return t.kind == Array && t.Elem.kind == DictEntry
}

// ErrMalformedSignature is wrapped by every error Parse returns; callers
// that need to distinguish a malformed signature from other failures
// (e.g. the introspect front-end, which reports the same condition as an
// InputValidation error at the owning Argument or Property) can match on
// it with errors.Is.
var ErrMalformedSignature = fmt.Errorf("malformed D-Bus signature")

type parseError struct {
	sig string
	pos int
	msg string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("malformed D-Bus signature %q at byte %d: %s", e.sig, e.pos, e.msg)
}

func (e *parseError) Unwrap() error { return ErrMalformedSignature }

func fail(sig string, pos int, msg string) error {
	return &parseError{sig: sig, pos: pos, msg: msg}
}

// Parse parses sig as a single complete D-Bus type. It fails with
// ErrMalformedSignature if sig is empty, contains more than one complete
// type, has unbalanced container nesting, uses a dict entry outside of
// an array, or nests more than 32 array codes in a row or more than 32
// structs deep.
func Parse(sig string) (*Type, error) {
	arrays, structs := 0, 0
	for i := 0; i < len(sig); i++ {
		arrays++
		if sig[i] != 'a' {
			arrays = 0
		}
		switch sig[i] {
		case '(':
			structs++
		case ')':
			structs--
		}
		if arrays > 32 || structs > 32 {
			return nil, fail(sig, i, "array or struct nesting deeper than 32 levels")
		}
	}
	t, rest, err := parseOne(sig, 0, false)
	if err != nil {
		return nil, err
	}
	if rest != len(sig) {
		return nil, fail(sig, rest, "trailing data after a single complete type")
	}
	return t, nil
}

// ParseMulti parses sig as zero or more complete types in sequence, e.g. the
// whole of a method's flattened signature, using the same grammar as a
// single Argument's Type. Struct fields are parsed by parseOne directly,
// not through ParseMulti, and Parse's nesting-depth limit is not applied
// here.
func ParseMulti(sig string) ([]*Type, error) {
	var out []*Type
	pos := 0
	for pos < len(sig) {
		t, next, err := parseOne(sig, pos, false)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		pos = next
	}
	return out, nil
}

// parseOne consumes one complete type starting at sig[pos:] and returns it
// along with the position just past it. inArray indicates we are parsing
// the immediate element of an array, the one context where a dict entry is
// legal.
func parseOne(sig string, pos int, inArray bool) (*Type, int, error) {
	if pos >= len(sig) {
		return nil, pos, fail(sig, pos, "expected a type code, got end of signature")
	}
	c := sig[pos]

	if kind, ok := basicCodes[c]; ok {
		return &Type{kind: kind}, pos + 1, nil
	}

	switch c {
	case 'v':
		return &Type{kind: Variant}, pos + 1, nil
	case 'a':
		elem, next, err := parseOne(sig, pos+1, true)
		if err != nil {
			return nil, pos, err
		}
		return &Type{kind: Array, Elem: elem}, next, nil
	case '(':
		var fields []*Type
		next := pos + 1
		for {
			if next >= len(sig) {
				return nil, pos, fail(sig, pos, "unterminated struct: missing ')'")
			}
			if sig[next] == ')' {
				break
			}
			field, after, err := parseOne(sig, next, false)
			if err != nil {
				return nil, pos, err
			}
			fields = append(fields, field)
			next = after
		}
		if len(fields) == 0 {
			return nil, pos, fail(sig, pos, "struct must have at least one field")
		}
		return &Type{kind: Struct, Fields: fields}, next + 1, nil
	case '{':
		if !inArray {
			return nil, pos, fail(sig, pos, "dict entry only legal as the element of an array")
		}
		key, next, err := parseOne(sig, pos+1, false)
		if err != nil {
			return nil, pos, err
		}
		if !key.IsBasic() {
			return nil, pos, fail(sig, pos, "dict entry key must be a basic type")
		}
		val, next2, err := parseOne(sig, next, false)
		if err != nil {
			return nil, pos, err
		}
		if next2 >= len(sig) || sig[next2] != '}' {
			return nil, pos, fail(sig, pos, "unterminated dict entry: missing '}'")
		}
		return &Type{kind: DictEntry, Key: key, Elem: val}, next2 + 1, nil
	case ')', '}':
		return nil, pos, fail(sig, pos, fmt.Sprintf("unexpected %q with no matching opener", c))
	default:
		return nil, pos, fail(sig, pos, fmt.Sprintf("unrecognized type code %q", c))
	}
}

// String reconstructs the D-Bus signature for t.
func (t *Type) String() string {
	var b strings.Builder
	t.writeSignature(&b)
	return b.String()
}

func (t *Type) writeSignature(b *strings.Builder) {
	for c, k := range basicCodes {
		if k == t.kind {
			b.WriteByte(c)
			return
		}
	}
	switch t.kind {
	case Variant:
		b.WriteByte('v')
	case Array:
		b.WriteByte('a')
		t.Elem.writeSignature(b)
	case Struct:
		b.WriteByte('(')
		for _, f := range t.Fields {
			f.writeSignature(b)
		}
		b.WriteByte(')')
	case DictEntry:
		b.WriteByte('{')
		t.Key.writeSignature(b)
		t.Elem.writeSignature(b)
		b.WriteByte('}')
	}
}
