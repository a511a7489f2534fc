// Package demarshal composes the Go source fragment that extracts a
// value of a given D-Bus type out of an inbound message iterator,
// recursing through array, struct and dict-entry-array containers and
// opening/closing the matching sub-container on every fragment it emits,
// including on its out-of-memory and type-mismatch recovery paths.
package demarshal

import (
	"fmt"
	"strings"

	"github.com/dbusgen/dbusgen/dbustype"
	"github.com/dbusgen/dbusgen/gen"
	"github.com/dbusgen/dbusgen/gen/dialect"
)

// Extract returns the Fragment that extracts a value of type t off iter
// and assigns it to an already-declared variable named val. oom and
// typeMismatch are already-rendered Go statements run on the respective
// recovery paths; both must transfer control out of the enclosing
// function, since these fragments do not know its result type.
func Extract(t *dbustype.Type, d dialect.Descriptor, iter, val, oom, typeMismatch string) (gen.Fragment, error) {
	c := &composer{d: d, oom: oom, typeMismatch: typeMismatch}
	c.extract(t, iter, val)
	return gen.Fragment{Code: c.b.String(), Locals: c.locals}, nil
}

type composer struct {
	b            strings.Builder
	d            dialect.Descriptor
	oom          string
	typeMismatch string
	seq          int
	locals       []string
	// open holds the close statement for each container this composer has
	// already opened and not yet closed, outermost first; see assign and
	// checkErr, which replay it, innermost first, on every recovery path.
	open []string
}

func (c *composer) emit(format string, args ...any) {
	fmt.Fprintf(&c.b, format+"\n", args...)
}

func (c *composer) pushOpen(closeStmt string) {
	c.open = append(c.open, closeStmt)
}

func (c *composer) popOpen() {
	c.open = c.open[:len(c.open)-1]
}

// checkErr emits: if err := expr; err != nil { <cleanup>; oom }. It is used
// for the container open/close calls themselves, which report a single
// error with no type-mismatch/out-of-memory distinction.
func (c *composer) checkErr(expr string) {
	c.emit("if err := %s; err != nil {", expr)
	for i := len(c.open) - 1; i >= 0; i-- {
		c.emit("  %s", c.open[i])
	}
	c.emit("  %s", c.oom)
	c.emit("}")
}

// local returns a fresh, never-repeated variable name with the given
// prefix. Uniqueness is tracked by a monotonic sequence counter rather
// than nesting depth, since two sibling fields at the same depth (e.g.
// two array fields of one struct) would otherwise both claim the same
// depth-derived name and produce a Go redeclaration at that scope.
func (c *composer) local(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, c.seq)
	c.seq++
	c.locals = append(c.locals, name)
	return name
}

// assign emits: var err error; val, err = expr; if err != nil {
// oom-or-typemismatch } using the type-mismatch path when expr's error came back wrapping a
// dbusrt.TypeMismatchError, and the out-of-memory path otherwise. The
// composed code checks this with errors.As so the distinction is made at
// generated-code runtime, not at generation time.
func (c *composer) assign(val, expr string) {
	errVar := c.local("err")
	c.emit("var %s error", errVar)
	c.emit("%s, %s = %s", val, errVar, expr)
	c.emit("if %s != nil {", errVar)
	c.emit("  var tme *%s.TypeMismatchError", c.d.Package())
	c.emit("  if errors.As(%s, &tme) {", errVar)
	for i := len(c.open) - 1; i >= 0; i-- {
		c.emit("    %s", c.open[i])
	}
	c.emit("    %s", c.typeMismatch)
	c.emit("  }")
	for i := len(c.open) - 1; i >= 0; i-- {
		c.emit("  %s", c.open[i])
	}
	c.emit("  %s", c.oom)
	c.emit("}")
}

func (c *composer) extract(t *dbustype.Type, iter, val string) {
	switch t.Kind() {
	case dbustype.Byte:
		c.assign(val, fmt.Sprintf("%s.ExtractByte()", iter))
	case dbustype.Boolean:
		c.assign(val, fmt.Sprintf("%s.ExtractBool()", iter))
	case dbustype.Int16:
		c.assign(val, fmt.Sprintf("%s.ExtractInt16()", iter))
	case dbustype.Uint16:
		c.assign(val, fmt.Sprintf("%s.ExtractUint16()", iter))
	case dbustype.Int32:
		c.assign(val, fmt.Sprintf("%s.ExtractInt32()", iter))
	case dbustype.Uint32:
		c.assign(val, fmt.Sprintf("%s.ExtractUint32()", iter))
	case dbustype.Int64:
		c.assign(val, fmt.Sprintf("%s.ExtractInt64()", iter))
	case dbustype.Uint64:
		c.assign(val, fmt.Sprintf("%s.ExtractUint64()", iter))
	case dbustype.Double:
		c.assign(val, fmt.Sprintf("%s.ExtractDouble()", iter))
	case dbustype.String:
		c.assign(val, fmt.Sprintf("%s.ExtractString()", iter))
	case dbustype.ObjectPath:
		raw := c.local("raw")
		c.emit("var %s string", raw)
		c.assign(raw, fmt.Sprintf("%s.ExtractString()", iter))
		c.emit("%s = %s.ObjectPath(%s)", val, c.d.Package(), raw)
	case dbustype.Signature:
		c.assign(val, fmt.Sprintf("%s.ExtractSignature()", iter))
	case dbustype.UnixFD:
		c.assign(val, fmt.Sprintf("%s.ExtractFD()", iter))
	case dbustype.Variant:
		c.assign(val, fmt.Sprintf("%s.ExtractVariant(%s)", c.d.Package(), iter))
	case dbustype.Array:
		c.extractArray(t, iter, val)
	case dbustype.Struct:
		c.extractStruct(t, iter, val)
	default:
		c.emit("%s", c.typeMismatch)
	}
}

func (c *composer) extractArray(t *dbustype.Type, iter, val string) {
	goType := t.GoType(dbustype.DirectionExtract)
	c.emit("%s = make(%s, 0)", val, goType)
	c.checkErr(fmt.Sprintf("%s.OpenArray()", iter))
	closeArray := fmt.Sprintf("%s.CloseArray()", iter)
	c.pushOpen(closeArray)
	countVar := c.local("n")
	c.emit("var %s uint32", countVar)
	c.assign(countVar, fmt.Sprintf("%s.ExtractUint32()", iter))
	c.emit("for i := uint32(0); i < %s; i++ {", countVar)
	if t.IsDictArray() {
		key := c.local("k")
		elem := c.local("v")
		c.emit("var %s %s", key, t.Elem.Key.GoType(dbustype.DirectionExtract))
		c.emit("var %s %s", elem, t.Elem.Elem.GoType(dbustype.DirectionExtract))
		c.checkErr(fmt.Sprintf("%s.OpenDictEntry()", iter))
		closeEntry := fmt.Sprintf("%s.CloseDictEntry()", iter)
		c.pushOpen(closeEntry)
		c.extract(t.Elem.Key, iter, key)
		c.extract(t.Elem.Elem, iter, elem)
		c.popOpen()
		c.checkErr(closeEntry)
		c.emit("%s[%s] = %s", val, key, elem)
	} else {
		elem := c.local("elem")
		c.emit("var %s %s", elem, t.Elem.GoType(dbustype.DirectionExtract))
		c.extract(t.Elem, iter, elem)
		c.emit("%s = append(%s, %s)", val, val, elem)
	}
	c.emit("}")
	c.popOpen()
	c.checkErr(closeArray)
}

func (c *composer) extractStruct(t *dbustype.Type, iter, val string) {
	c.checkErr(fmt.Sprintf("%s.OpenStruct()", iter))
	closeStruct := fmt.Sprintf("%s.CloseStruct()", iter)
	c.pushOpen(closeStruct)
	for i, f := range t.Fields {
		c.extract(f, iter, fmt.Sprintf("%s.F%d", val, i))
	}
	c.popOpen()
	c.checkErr(closeStruct)
}
