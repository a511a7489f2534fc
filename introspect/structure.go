package introspect

import (
	"bytes"
	"encoding/xml"
	"log/slog"
)

// elementSpec describes where a recognized introspection XML element is
// allowed to appear and which attributes it is allowed to carry.
// allowedParents is empty for node, which is only ever valid at the
// document root.
type elementSpec struct {
	allowedParents map[string]bool
	allowedAttrs   map[string]bool
}

var elementSpecs = map[string]elementSpec{
	"node": {
		allowedAttrs: map[string]bool{"name": true},
	},
	"interface": {
		allowedParents: map[string]bool{"node": true},
		allowedAttrs:   map[string]bool{"name": true},
	},
	"method": {
		allowedParents: map[string]bool{"interface": true},
		allowedAttrs:   map[string]bool{"name": true},
	},
	"signal": {
		allowedParents: map[string]bool{"interface": true},
		allowedAttrs:   map[string]bool{"name": true},
	},
	"property": {
		allowedParents: map[string]bool{"interface": true},
		allowedAttrs:   map[string]bool{"name": true, "type": true, "access": true},
	},
	"arg": {
		allowedParents: map[string]bool{"method": true, "signal": true},
		allowedAttrs:   map[string]bool{"name": true, "type": true, "direction": true},
	},
	"annotation": {
		allowedParents: map[string]bool{"interface": true, "method": true, "signal": true, "property": true, "arg": true},
		allowedAttrs:   map[string]bool{"name": true, "value": true},
	},
}

// checkStructure walks raw as a bare token stream, independently of the
// struct-tag decode Parse performs, and logs a warning for every element
// or attribute InputValidation treats as recoverable rather than fatal:
//
//   - an unknown attribute on a recognized element is warned about and
//     otherwise ignored;
//   - an element under a recognized parent that nothing in elementSpecs
//     names is warned about and ignored, along with its whole subtree, since it
//     carries no information this generator's data model has a place for;
//   - a recognized element appearing somewhere other than its permitted
//     parent is warned about and treated as unrecognized (its subtree is
//     ignored the same way).
//
// None of these become a ValidationError: they are warn-and-continue,
// not document-fatal, unlike a missing required attribute, which Validate
// catches separately as part of its own struct-field walk.
func checkStructure(file string, raw []byte) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	// stack holds, for each currently open element, the element name if it
	// was recognized and correctly placed, or "" if it is being ignored
	// (unrecognized, or recognized but misplaced) — so nothing nested
	// inside an ignored element is re-examined against elementSpecs.
	var stack []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			var parent string
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			spec, known := elementSpecs[name]
			if !known {
				if parent != "" {
					slog.Warn("ignoring unrecognized element", "file", file, "element", name, "parent", parent)
				}
				stack = append(stack, "")
				continue
			}
			placedOK := true
			if len(spec.allowedParents) == 0 {
				placedOK = len(stack) == 0
			} else {
				placedOK = spec.allowedParents[parent]
			}
			if !placedOK {
				slog.Warn("ignoring element outside its permitted parent", "file", file, "element", name, "parent", parent)
				stack = append(stack, "")
				continue
			}
			for _, attr := range t.Attr {
				if !spec.allowedAttrs[attr.Name.Local] {
					slog.Warn("ignoring unknown attribute", "file", file, "element", name, "attribute", attr.Name.Local)
				}
			}
			stack = append(stack, name)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}
