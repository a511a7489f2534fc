// Package marshal composes the Go source fragment that appends a value
// of a given D-Bus type onto an outbound message iterator, recursing
// through array, struct and dict-entry-array containers and opening/
// closing the matching sub-container on every fragment it emits.
package marshal

import (
	"fmt"
	"strings"

	"github.com/dbusgen/dbusgen/dbustype"
	"github.com/dbusgen/dbusgen/gen"
	"github.com/dbusgen/dbusgen/gen/dialect"
)

// Append returns the Fragment that appends val, of type t, onto iter.
// oom is an already-rendered Go statement (or block) to run, in place of
// a plain return, on the out-of-memory path; it must itself return or
// otherwise transfer control out of the enclosing function, since the
// fragments generated here do not know their enclosing function's result
// type.
func Append(t *dbustype.Type, d dialect.Descriptor, iter, val, oom string) (gen.Fragment, error) {
	c := &composer{d: d, oom: oom}
	c.append(t, iter, val)
	return gen.Fragment{Code: c.b.String(), Locals: c.locals}, nil
}

type composer struct {
	b      strings.Builder
	d      dialect.Descriptor
	oom    string
	seq    int
	locals []string
	// open holds the close statement for each container this composer has
	// already opened and not yet closed, outermost first. checkErr replays
	// this stack, innermost first, before c.oom on every failure so a
	// container opened earlier in the same Append is always closed before
	// control leaves the function.
	open []string
}

func (c *composer) emit(format string, args ...any) {
	fmt.Fprintf(&c.b, format+"\n", args...)
}

func (c *composer) checkErr(expr string) {
	c.emit("if err := %s; err != nil {", expr)
	for i := len(c.open) - 1; i >= 0; i-- {
		c.emit("  %s", c.open[i])
	}
	c.emit("  %s", c.oom)
	c.emit("}")
}

// pushOpen records that closeStmt must run, ahead of c.oom, on every
// failure path until the matching popOpen.
func (c *composer) pushOpen(closeStmt string) {
	c.open = append(c.open, closeStmt)
}

func (c *composer) popOpen() {
	c.open = c.open[:len(c.open)-1]
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

func (c *composer) append(t *dbustype.Type, iter, val string) {
	switch t.Kind() {
	case dbustype.Byte:
		c.checkErr(fmt.Sprintf("%s.AppendByte(%s)", iter, val))
	case dbustype.Boolean:
		c.checkErr(fmt.Sprintf("%s.AppendBool(%s)", iter, val))
	case dbustype.Int16:
		c.checkErr(fmt.Sprintf("%s.AppendInt16(%s)", iter, val))
	case dbustype.Uint16:
		c.checkErr(fmt.Sprintf("%s.AppendUint16(%s)", iter, val))
	case dbustype.Int32:
		c.checkErr(fmt.Sprintf("%s.AppendInt32(%s)", iter, val))
	case dbustype.Uint32:
		c.checkErr(fmt.Sprintf("%s.AppendUint32(%s)", iter, val))
	case dbustype.Int64:
		c.checkErr(fmt.Sprintf("%s.AppendInt64(%s)", iter, val))
	case dbustype.Uint64:
		c.checkErr(fmt.Sprintf("%s.AppendUint64(%s)", iter, val))
	case dbustype.Double:
		c.checkErr(fmt.Sprintf("%s.AppendDouble(%s)", iter, val))
	case dbustype.String:
		c.checkErr(fmt.Sprintf("%s.AppendString(%s)", iter, val))
	case dbustype.ObjectPath:
		c.checkErr(fmt.Sprintf("%s.AppendString(string(%s))", iter, val))
	case dbustype.Signature:
		c.checkErr(fmt.Sprintf("%s.AppendSignature(%s.Signature(%s))", iter, c.d.Package(), val))
	case dbustype.UnixFD:
		c.checkErr(fmt.Sprintf("%s.AppendFD(%s)", iter, val))
	case dbustype.Variant:
		c.checkErr(fmt.Sprintf("%s.AppendVariant(%s, %s)", c.d.Package(), iter, val))
	case dbustype.Array:
		c.appendArray(t, iter, val)
	case dbustype.Struct:
		c.appendStruct(t, iter, val)
	default:
		c.checkErr(fmt.Sprintf("fmt.Errorf(\"marshal: unsupported kind %%v\", %d)", t.Kind()))
	}
}

func (c *composer) appendArray(t *dbustype.Type, iter, val string) {
	c.checkErr(fmt.Sprintf("%s.OpenArray()", iter))
	closeArray := fmt.Sprintf("%s.CloseArray()", iter)
	c.pushOpen(closeArray)
	c.checkErr(fmt.Sprintf("%s.AppendUint32(uint32(len(%s)))", iter, val))
	if t.IsDictArray() {
		key := c.local("k")
		elem := c.local("v")
		c.emit("for %s, %s := range %s {", key, elem, val)
		c.checkErr(fmt.Sprintf("%s.OpenDictEntry()", iter))
		closeEntry := fmt.Sprintf("%s.CloseDictEntry()", iter)
		c.pushOpen(closeEntry)
		c.append(t.Elem.Key, iter, key)
		c.append(t.Elem.Elem, iter, elem)
		c.popOpen()
		c.checkErr(closeEntry)
		c.emit("}")
	} else {
		elem := c.local("elem")
		c.emit("for _, %s := range %s {", elem, val)
		c.append(t.Elem, iter, elem)
		c.emit("}")
	}
	c.popOpen()
	c.checkErr(closeArray)
}

func (c *composer) appendStruct(t *dbustype.Type, iter, val string) {
	c.checkErr(fmt.Sprintf("%s.OpenStruct()", iter))
	closeStruct := fmt.Sprintf("%s.CloseStruct()", iter)
	c.pushOpen(closeStruct)
	for i, f := range t.Fields {
		c.append(f, iter, fmt.Sprintf("%s.F%d", val, i))
	}
	c.popOpen()
	c.checkErr(closeStruct)
}
