package introspect

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/multierr"

	"github.com/dbusgen/dbusgen/dbustype"
)

// ValidationKind classifies the sub-case of a ValidationError.
type ValidationKind int

const (
	KindMissingAttribute ValidationKind = iota
	KindMalformedName
	KindMalformedSignature
	KindIllegalAccess
	KindIllegalDeprecatedValue
	KindUnknownAnnotation
	KindDuplicateSymbol
)

func (k ValidationKind) String() string {
	switch k {
	case KindMissingAttribute:
		return "MissingAttribute"
	case KindMalformedName:
		return "MalformedName"
	case KindMalformedSignature:
		return "MalformedSignature"
	case KindIllegalAccess:
		return "IllegalAccess"
	case KindIllegalDeprecatedValue:
		return "IllegalDeprecatedValue"
	case KindUnknownAnnotation:
		return "UnknownAnnotation"
	case KindDuplicateSymbol:
		return "DuplicateSymbol"
	default:
		return "Unknown"
	}
}

// ValidationError reports one problem found while validating a Document,
// located as precisely as the source text allows.
type ValidationError struct {
	File    string
	Line    int
	Column  int
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Kind, e.Message)
}

// memberNameRE matches a single valid D-Bus member name (method, signal,
// property, argument, or one segment of an interface name) and a valid
// generated symbol.
var memberNameRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validMemberName(s string) bool {
	return len(s) >= 1 && len(s) <= 255 && memberNameRE.MatchString(s)
}

func validInterfaceName(s string) bool {
	if len(s) == 0 || len(s) > 255 {
		return false
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		if !memberNameRE.MatchString(p) {
			return false
		}
	}
	return true
}

// deriveSymbol converts a CamelCase D-Bus member name into the
// lowercase-with-underscores symbol used as its default generated
// identifier, e.g. "GetWidgetByID" -> "get_widget_by_id".
func deriveSymbol(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && runes[i-1] != '_') {
				b.WriteByte('_')
			}
		}
		if upper {
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// locate performs a best-effort search for name="value" in content and
// reports its 1-based line and column, or (0, 0) if not found. It is used
// to recover an approximate source position for validation errors without
// threading a full position-tracking parse through the struct-tag decoder.
func locate(content []byte, attr, value string) (line, col int) {
	needle := []byte(attr + `="` + value + `"`)
	idx := bytes.Index(content, needle)
	if idx < 0 {
		return 0, 0
	}
	line = 1 + bytes.Count(content[:idx], []byte("\n"))
	if nl := bytes.LastIndexByte(content[:idx], '\n'); nl >= 0 {
		col = idx - nl
	} else {
		col = idx + 1
	}
	return line, col
}

var interfaceAnnotations = map[string]bool{annoDeprecated: true}
var methodAnnotations = map[string]bool{annoDeprecated: true, annoNoReply: true, annoAsync: true, annoSymbol: true}
var signalAnnotations = map[string]bool{annoDeprecated: true, annoSymbol: true}
var propertyAnnotations = map[string]bool{annoDeprecated: true, annoEmitsChangedSignal: true, annoSymbol: true}
var argAnnotations = map[string]bool{annoDeprecated: true}

// Validate checks d against every InputValidation rule, parsing each
// Argument/Property type signature through dbustype and deriving or
// checking every Method/Signal/Property symbol. file is recorded on every
// ValidationError and used, together with raw, to locate approximate
// source positions; raw is the original document bytes as given to Parse.
//
// All violations found are accumulated and returned together via
// go.uber.org/multierr rather than stopping at the first one, so a caller
// sees every mistake in a document in one pass.
//
// Before that struct-field walk, Validate re-scans raw's raw token stream
// for the cases InputValidation treats as recoverable rather than
// document-fatal — an unrecognized element, a recognized element in the
// wrong parent, or an unknown attribute — and logs each one rather than
// failing the document; see checkStructure.
func Validate(d *Document, file string, raw []byte) error {
	checkStructure(file, raw)

	var errs error
	report := func(attr, value string, kind ValidationKind, format string, args ...any) {
		line, col := locate(raw, attr, value)
		errs = multierr.Append(errs, &ValidationError{
			File: file, Line: line, Column: col, Kind: kind,
			Message: fmt.Sprintf(format, args...),
		})
	}

	checkAnnotations := func(as []Annotation, allowed map[string]bool, owner string) {
		for _, a := range as {
			if a.Name == "" {
				report("name", "", KindMissingAttribute, "annotation on %s is missing a name", owner)
				continue
			}
			if !allowed[a.Name] {
				report("name", a.Name, KindUnknownAnnotation, "unrecognized annotation %q on %s", a.Name, owner)
				continue
			}
			if a.Name == annoDeprecated && a.Value != "true" && a.Value != "false" {
				report("value", a.Value, KindIllegalDeprecatedValue, "Deprecated annotation on %s must be \"true\" or \"false\", got %q", owner, a.Value)
			}
		}
	}

	checkType := func(sig, attr, owner string) *dbustype.Type {
		if sig == "" {
			report("name", owner, KindMissingAttribute, "%s is missing a type attribute", owner)
			return nil
		}
		t, err := dbustype.Parse(sig)
		if err != nil {
			report("type", sig, KindMalformedSignature, "%s has malformed type %q: %v", owner, sig, err)
			return nil
		}
		return t
	}

	resolveSymbol := func(name string, as []Annotation, owner string) string {
		if v, ok := annotationValue(as, annoSymbol); ok {
			if !validMemberName(v) {
				report("value", v, KindMalformedName, "Symbol annotation on %s is not a valid identifier: %q", owner, v)
			}
			return v
		}
		return deriveSymbol(name)
	}

	for ii := range d.Interfaces {
		itf := &d.Interfaces[ii]
		if itf.Name == "" {
			report("name", "", KindMissingAttribute, "interface is missing a name")
		} else if !validInterfaceName(itf.Name) {
			report("name", itf.Name, KindMalformedName, "invalid interface name %q", itf.Name)
		}
		checkAnnotations(itf.Annotations, interfaceAnnotations, fmt.Sprintf("interface %q", itf.Name))
		itf.Symbol = resolveSymbol(itf.Name, itf.Annotations, fmt.Sprintf("interface %q", itf.Name))

		methodSymbols := map[string][]string{}
		for mi := range itf.Methods {
			m := &itf.Methods[mi]
			owner := fmt.Sprintf("method %q", m.Name)
			if m.Name == "" {
				report("name", "", KindMissingAttribute, "method is missing a name")
			} else if !validMemberName(m.Name) {
				report("name", m.Name, KindMalformedName, "invalid method name %q", m.Name)
			}
			checkAnnotations(m.Annotations, methodAnnotations, owner)
			m.Symbol = resolveSymbol(m.Name, m.Annotations, owner)
			methodSymbols[m.Symbol] = append(methodSymbols[m.Symbol], m.Name)

			if m.Kind() == MethodKindNoReply && len(m.OutputArguments()) > 0 {
				report("name", m.Name, KindIllegalAccess, "method %q is NoReply but declares output arguments", m.Name)
			}

			argNames := map[string]bool{}
			for ai := range m.Args {
				arg := &m.Args[ai]
				aowner := fmt.Sprintf("argument %q of method %q", arg.Name, m.Name)
				if arg.Name != "" {
					if !validMemberName(arg.Name) {
						report("name", arg.Name, KindMalformedName, "invalid argument name %q", arg.Name)
					}
					if argNames[arg.Name] {
						report("name", arg.Name, KindDuplicateSymbol, "duplicate argument name %q in method %q", arg.Name, m.Name)
					}
					argNames[arg.Name] = true
				}
				if arg.Direction != "" && arg.Direction != string(DirectionIn) && arg.Direction != string(DirectionOut) {
					report("direction", arg.Direction, KindIllegalAccess, "argument %q has invalid direction %q", arg.Name, arg.Direction)
				}
				checkAnnotations(arg.Annotations, argAnnotations, aowner)
				arg.parsedType = checkType(arg.Type, "type", aowner)
			}
		}
		for sym, names := range methodSymbols {
			if len(names) > 1 {
				report("name", names[0], KindDuplicateSymbol, "methods %v in interface %q all derive symbol %q", names, itf.Name, sym)
			}
		}

		signalSymbols := map[string][]string{}
		for si := range itf.Signals {
			s := &itf.Signals[si]
			owner := fmt.Sprintf("signal %q", s.Name)
			if s.Name == "" {
				report("name", "", KindMissingAttribute, "signal is missing a name")
			} else if !validMemberName(s.Name) {
				report("name", s.Name, KindMalformedName, "invalid signal name %q", s.Name)
			}
			checkAnnotations(s.Annotations, signalAnnotations, owner)
			s.Symbol = resolveSymbol(s.Name, s.Annotations, owner)
			signalSymbols[s.Symbol] = append(signalSymbols[s.Symbol], s.Name)

			argNames := map[string]bool{}
			for ai := range s.Args {
				arg := &s.Args[ai]
				aowner := fmt.Sprintf("argument %q of signal %q", arg.Name, s.Name)
				if arg.Name != "" {
					if !validMemberName(arg.Name) {
						report("name", arg.Name, KindMalformedName, "invalid argument name %q", arg.Name)
					}
					if argNames[arg.Name] {
						report("name", arg.Name, KindDuplicateSymbol, "duplicate argument name %q in signal %q", arg.Name, s.Name)
					}
					argNames[arg.Name] = true
				}
				checkAnnotations(arg.Annotations, argAnnotations, aowner)
				arg.parsedType = checkType(arg.Type, "type", aowner)
			}
		}
		for sym, names := range signalSymbols {
			if len(names) > 1 {
				report("name", names[0], KindDuplicateSymbol, "signals %v in interface %q all derive symbol %q", names, itf.Name, sym)
			}
		}

		propSymbols := map[string][]string{}
		for pi := range itf.Properties {
			p := &itf.Properties[pi]
			owner := fmt.Sprintf("property %q", p.Name)
			if p.Name == "" {
				report("name", "", KindMissingAttribute, "property is missing a name")
			} else if !validMemberName(p.Name) {
				report("name", p.Name, KindMalformedName, "invalid property name %q", p.Name)
			}
			switch Access(p.Access) {
			case AccessRead, AccessWrite, AccessReadWrite:
			default:
				report("access", p.Access, KindIllegalAccess, "property %q has invalid access %q", p.Name, p.Access)
			}
			checkAnnotations(p.Annotations, propertyAnnotations, owner)
			p.Symbol = resolveSymbol(p.Name, p.Annotations, owner)
			propSymbols[p.Symbol] = append(propSymbols[p.Symbol], p.Name)
			p.parsedType = checkType(p.Type, "type", owner)
		}
		for sym, names := range propSymbols {
			if len(names) > 1 {
				report("name", names[0], KindDuplicateSymbol, "properties %v in interface %q all derive symbol %q", names, itf.Name, sym)
			}
		}
	}

	return errs
}
