package demarshal_test

import (
	"strings"
	"testing"

	"github.com/dbusgen/dbusgen/dbustype"
	"github.com/dbusgen/dbusgen/gen/demarshal"
	"github.com/dbusgen/dbusgen/gen/dialect"
)

func mustParse(t *testing.T, sig string) *dbustype.Type {
	t.Helper()
	typ, err := dbustype.Parse(sig)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sig, err)
	}
	return typ
}

func TestExtractScalarUsesBothRecoveryPaths(t *testing.T) {
	typ := mustParse(t, "i")
	frag, err := demarshal.Extract(typ, dialect.NewGo(), "iter", "val", "return oomErr", "return mismatchErr")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(frag.Code, "return oomErr") {
		t.Errorf("Code missing out-of-memory recovery:\n%s", frag.Code)
	}
	if !strings.Contains(frag.Code, "return mismatchErr") {
		t.Errorf("Code missing type-mismatch recovery:\n%s", frag.Code)
	}
	if !strings.Contains(frag.Code, "errors.As") {
		t.Errorf("Code missing errors.As dispatch:\n%s", frag.Code)
	}
}

// assertExtractExitsBalanced walks frag line by line, tracking the
// containers this fragment has opened and not yet closed, and checks two
// kinds of recovery block against that running stack:
//
//   - a bare "if err := EXPR; err != nil { ... }" (emitted for the Open/
//     Close container calls themselves) must close exactly the open
//     containers, innermost first, before oom;
//   - an assign-style "if errN != nil { ... }" (emitted for a scalar
//     Extract* call) must close the open containers before the nested
//     type-mismatch branch AND again before the outer out-of-memory
//     statement, since either branch can be taken independently.
//
// This catches a fragment that closes containers on one recovery path but
// not the other, which a plain substring/count check cannot.
func assertExtractExitsBalanced(t *testing.T, code, oom, mismatch string) {
	t.Helper()
	lines := strings.Split(code, "\n")
	v := &demarshalVerifier{t: t, lines: lines, oom: oom, mismatch: mismatch}
	v.walk(0, len(lines))
	if len(v.stack) != 0 {
		t.Errorf("containers left open at end of fragment: %v\n%s", v.stack, code)
	}
}

type demarshalVerifier struct {
	t        *testing.T
	lines    []string
	oom      string
	mismatch string
	stack    []string
}

func (v *demarshalVerifier) walk(from, to int) {
	i := from
	for i < to {
		line := strings.TrimSpace(v.lines[i])
		switch {
		case line == "" || line == "}":
			i++
		case strings.HasPrefix(line, "if err := ") && strings.HasSuffix(line, "; err != nil {"):
			expr := strings.TrimSuffix(strings.TrimPrefix(line, "if err := "), "; err != nil {")
			end := v.matchingBrace(i)
			// A close call pops before the composer emits the check (it
			// never needs to close the container it is already closing),
			// while an open call pushes only after the check it guards.
			if isCloseCall(expr) {
				v.applyContainer(expr)
				v.checkSimpleBlock(expr, i+1, end, v.oom)
			} else {
				v.checkSimpleBlock(expr, i+1, end, v.oom)
				v.applyContainer(expr)
			}
			i = end + 1
		case strings.HasPrefix(line, "if ") && strings.HasSuffix(line, "!= nil {") && !strings.Contains(line, "errors.As"):
			end := v.matchingBrace(i)
			v.checkAssignBlock(i+1, end)
			i = end + 1
		case strings.HasSuffix(line, "{"):
			end := v.matchingBrace(i)
			v.walk(i+1, end)
			i = end + 1
		default:
			i++
		}
	}
}

// checkAssignBlock verifies the body of one assign()-emitted recovery
// block: a nested errors.As dispatch ending in v.mismatch, followed by the
// fallthrough cleanup ending in v.oom.
func (v *demarshalVerifier) checkAssignBlock(from, to int) {
	i := from
	for i < to && !strings.Contains(strings.TrimSpace(v.lines[i]), "errors.As(") {
		i++
	}
	if i >= to {
		v.t.Fatalf("assign-style recovery block missing errors.As dispatch")
	}
	asEnd := v.matchingBrace(i)
	v.checkSimpleBlock("errors.As mismatch branch", i+1, asEnd, v.mismatch)
	v.checkSimpleBlock("oom fallthrough branch", asEnd+1, to, v.oom)
}

// checkSimpleBlock verifies that lines[from:to), a block with no nested
// braces, is exactly the reversed current container stack followed by
// sentinel.
func (v *demarshalVerifier) checkSimpleBlock(label string, from, to int, sentinel string) {
	var body []string
	for i := from; i < to; i++ {
		l := strings.TrimSpace(v.lines[i])
		if l != "" {
			body = append(body, l)
		}
	}
	if len(body) == 0 || body[len(body)-1] != sentinel {
		v.t.Fatalf("%s does not end with sentinel %q: %v", label, sentinel, body)
	}
	cleanup := body[:len(body)-1]
	var want []string
	for j := len(v.stack) - 1; j >= 0; j-- {
		want = append(want, v.stack[j])
	}
	if !equalStrings(cleanup, want) {
		v.t.Fatalf("%s: got cleanup %v, want %v", label, cleanup, want)
	}
}

func (v *demarshalVerifier) applyContainer(expr string) {
	switch {
	case isOpenCall(expr):
		v.stack = append(v.stack, toCloseStmt(expr))
	case isCloseCall(expr):
		if len(v.stack) == 0 || v.stack[len(v.stack)-1] != expr {
			v.t.Fatalf("close %q does not match top of open stack %v", expr, v.stack)
		}
		v.stack = v.stack[:len(v.stack)-1]
	}
}

func (v *demarshalVerifier) matchingBrace(open int) int {
	depth := 0
	for i := open; i < len(v.lines); i++ {
		line := strings.TrimSpace(v.lines[i])
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth == 0 {
			return i
		}
	}
	v.t.Fatalf("unbalanced braces starting at line %d", open)
	return -1
}

func isOpenCall(expr string) bool {
	return strings.Contains(expr, "OpenArray()") || strings.Contains(expr, "OpenStruct()") || strings.Contains(expr, "OpenDictEntry()")
}

func isCloseCall(expr string) bool {
	return strings.Contains(expr, "CloseArray()") || strings.Contains(expr, "CloseStruct()") || strings.Contains(expr, "CloseDictEntry()")
}

func toCloseStmt(expr string) string {
	r := strings.NewReplacer("OpenArray", "CloseArray", "OpenStruct", "CloseStruct", "OpenDictEntry", "CloseDictEntry")
	return r.Replace(expr)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExtractArrayExitsBalanced(t *testing.T) {
	typ := mustParse(t, "a{sv}")
	frag, err := demarshal.Extract(typ, dialect.NewGo(), "iter", "val", "return oomErr", "return mismatchErr")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(frag.Code, "make(map[string]dbusrt.Variant") {
		t.Errorf("Code missing map allocation:\n%s", frag.Code)
	}
	assertExtractExitsBalanced(t, frag.Code, "return oomErr", "return mismatchErr")
}

func TestExtractStructFieldsInOrder(t *testing.T) {
	typ := mustParse(t, "(isb)")
	frag, err := demarshal.Extract(typ, dialect.NewGo(), "iter", "val", "return oomErr", "return mismatchErr")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	f0 := strings.Index(frag.Code, "val.F0")
	f1 := strings.Index(frag.Code, "val.F1")
	f2 := strings.Index(frag.Code, "val.F2")
	if f0 < 0 || f1 < 0 || f2 < 0 || !(f0 < f1 && f1 < f2) {
		t.Errorf("struct fields not emitted in order F0 < F1 < F2:\n%s", frag.Code)
	}
	assertExtractExitsBalanced(t, frag.Code, "return oomErr", "return mismatchErr")
}

// TestExtractArrayOfStructExitsBalanced exercises two nesting levels: a
// recovery inside the struct element's own fields must close the struct
// before the enclosing array, on both the mismatch and oom paths.
func TestExtractArrayOfStructExitsBalanced(t *testing.T) {
	typ := mustParse(t, "a(is)")
	frag, err := demarshal.Extract(typ, dialect.NewGo(), "iter", "val", "return oomErr", "return mismatchErr")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	assertExtractExitsBalanced(t, frag.Code, "return oomErr", "return mismatchErr")
}

func TestExtractLocalsNoDuplicates(t *testing.T) {
	typ := mustParse(t, "aai")
	frag, err := demarshal.Extract(typ, dialect.NewGo(), "iter", "val", "return oomErr", "return mismatchErr")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	seen := map[string]bool{}
	for _, l := range frag.Locals {
		if seen[l] {
			t.Errorf("duplicate local name %q", l)
		}
		seen[l] = true
	}
}
