// Package server composes the four server-side stub functions: method
// dispatch, property getter, property setter, and signal emission. Each
// composer
// demarshals its inputs with the shared out-of-memory/type-mismatch
// recovery frame, calls into a user-supplied handler method, and
// marshals any outputs.
package server

import (
	"fmt"
	"strings"

	"github.com/dbusgen/dbusgen/dbustype"
	"github.com/dbusgen/dbusgen/gen"
	"github.com/dbusgen/dbusgen/gen/demarshal"
	"github.com/dbusgen/dbusgen/gen/dialect"
	"github.com/dbusgen/dbusgen/gen/marshal"
	"github.com/dbusgen/dbusgen/genutil"
	"github.com/dbusgen/dbusgen/introspect"
)

// MethodDispatch composes the dispatch function for one Method of an
// interface. The emitted function demarshals m's input arguments off
// iter, calls the user handler (named after m's exported identifier on
// the interface's server type), and — for a Normal method with outputs —
// marshals the outputs into the reply iterator it returns.
func MethodDispatch(interfaceName string, m *introspect.Method, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(m.Symbol)
	ins := m.InputArguments()
	outs := m.OutputArguments()

	fmt.Fprintf(&b, "// dispatch%s demarshals the arguments of the %q method of\n", fn, m.Name)
	fmt.Fprintf(&b, "// %s, invokes the handler, and marshals its reply.\n", interfaceName)
	fmt.Fprintf(&b, "func (s *%s) dispatch%s(object %sHandler, msg *dbusrt.Iter, iter *dbusrt.Iter) (*dbusrt.Iter, error) {\n", genutil.ServerTypeName(interfaceName), fn, genutil.ServerTypeName(interfaceName))
	fmt.Fprintf(&b, "\tif object == nil || iter == nil {\n")
	fmt.Fprintf(&b, "\t\treturn nil, fmt.Errorf(\"%s: nil object or iterator\")\n", fn)
	fmt.Fprintf(&b, "\t}\n")

	oom := "return nil, dbusrt.ErrNoMemory"
	mismatch := fmt.Sprintf("return nil, &dbusrt.InvalidArgsError{Member: %q}", m.Name)

	var callArgs []string
	for i, arg := range ins {
		local := fmt.Sprintf("in%d", i)
		b.WriteString(fmt.Sprintf("\tvar %s %s\n", local, arg.ParsedType().GoType(dbustype.DirectionExtract)))
		frag, err := demarshal.Extract(arg.ParsedType(), d, "iter", local, oom, mismatch)
		if err != nil {
			return gen.Stub{}, err
		}
		writeIndented(&b, frag.Code, 1)
		callArgs = append(callArgs, local)
	}
	b.WriteString("\tif !iter.AtEnd() {\n")
	fmt.Fprintf(&b, "\t\t%s\n", mismatch)
	b.WriteString("\t}\n")

	var outLocals []string
	for i, arg := range outs {
		local := fmt.Sprintf("out%d", i)
		b.WriteString(fmt.Sprintf("\tvar %s %s\n", local, arg.ParsedType().GoType(dbustype.DirectionAppend)))
		callArgs = append(callArgs, "&"+local)
		outLocals = append(outLocals, local)
	}

	if m.Kind() == introspect.MethodKindNoReply {
		fmt.Fprintf(&b, "\tobject.%s(%s)\n", fn, strings.Join(callArgs, ", "))
		b.WriteString("\treturn nil, nil\n")
	} else {
		fmt.Fprintf(&b, "\tif err := object.%s(%s); err != nil {\n", fn, strings.Join(callArgs, ", "))
		b.WriteString("\t\treturn nil, err\n")
		b.WriteString("\t}\n")
		b.WriteString("\treply := dbusrt.NewAppendIter(nil)\n")
		appendOom := "return nil, dbusrt.ErrNoMemory"
		for i, arg := range outs {
			frag, err := marshal.Append(arg.ParsedType(), d, "reply", outLocals[i], appendOom)
			if err != nil {
				return gen.Stub{}, err
			}
			writeIndented(&b, frag.Code, 1)
		}
		b.WriteString("\treturn reply, nil\n")
	}
	b.WriteString("}\n")

	return gen.Stub{
		Source:   b.String(),
		Handlers: []gen.HandlerProto{methodHandlerProto(fn, ins, outs)},
	}, nil
}

func methodHandlerProto(fn string, ins, outs []introspect.Argument) gen.HandlerProto {
	proto := gen.HandlerProto{Name: fn}
	for i, a := range ins {
		proto.Params = append(proto.Params, gen.Param{Name: argOrDefault(a.Name, fmt.Sprintf("in%d", i)), Type: a.ParsedType().InArgType(dbustype.ReceiverServer)})
	}
	for i, a := range outs {
		proto.Params = append(proto.Params, gen.Param{Name: argOrDefault(a.Name, fmt.Sprintf("out%d", i)), Type: a.ParsedType().OutArgType(dbustype.ReceiverServer)})
	}
	proto.Results = []gen.Param{{Name: "err", Type: "error"}}
	return proto
}

// PropertyGet composes the server-side Properties.Get stub for a single
// Property: it marshals the property's current value (obtained from the
// handler) wrapped in a variant of the property's declared signature.
func PropertyGet(interfaceName string, p *introspect.Property, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(p.Symbol)
	serverType := genutil.ServerTypeName(interfaceName)

	fmt.Fprintf(&b, "// get%s marshals the current value of the %q property of\n", fn, p.Name)
	fmt.Fprintf(&b, "// %s as a variant.\n", interfaceName)
	fmt.Fprintf(&b, "func (s *%s) get%s(object %sHandler) (*dbusrt.Iter, error) {\n", serverType, fn, serverType)
	b.WriteString("\tif object == nil {\n")
	fmt.Fprintf(&b, "\t\treturn nil, fmt.Errorf(\"%s: nil object\")\n", fn)
	b.WriteString("\t}\n")
	fmt.Fprintf(&b, "\tval, err := object.%s()\n", fn)
	b.WriteString("\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	b.WriteString("\treply := dbusrt.NewAppendIter(nil)\n")
	fmt.Fprintf(&b, "\tif err := reply.OpenVariant(dbusrt.Signature(%q)); err != nil {\n", p.Type)
	b.WriteString("\t\treturn nil, dbusrt.ErrNoMemory\n\t}\n")
	frag, err := marshal.Append(p.ParsedType(), d, "reply", "val", "return nil, dbusrt.ErrNoMemory")
	if err != nil {
		return gen.Stub{}, err
	}
	writeIndented(&b, frag.Code, 1)
	b.WriteString("\tif err := reply.CloseVariant(); err != nil {\n\t\treturn nil, dbusrt.ErrNoMemory\n\t}\n")
	b.WriteString("\treturn reply, nil\n")
	b.WriteString("}\n")

	return gen.Stub{
		Source: b.String(),
		Handlers: []gen.HandlerProto{{
			Name:    fn,
			Results: []gen.Param{{Name: "val", Type: p.ParsedType().GoType(dbustype.DirectionAppend)}, {Name: "err", Type: "error"}},
		}},
	}, nil
}

// PropertySet composes the server-side Properties.Set stub for a single
// Property: it expects exactly one inbound argument, a variant, recurses
// into it, demarshals the inner value, and invokes the user's setter.
func PropertySet(interfaceName string, p *introspect.Property, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(p.Symbol)
	serverType := genutil.ServerTypeName(interfaceName)
	mismatch := fmt.Sprintf("return &dbusrt.InvalidArgsError{Member: %q}", p.Name)

	fmt.Fprintf(&b, "// set%s demarshals a new value for the %q property of\n", fn, p.Name)
	fmt.Fprintf(&b, "// %s out of a variant and invokes the handler.\n", interfaceName)
	fmt.Fprintf(&b, "func (s *%s) set%s(object %sHandler, iter *dbusrt.Iter) error {\n", serverType, fn, serverType)
	b.WriteString("\tif object == nil || iter == nil {\n")
	fmt.Fprintf(&b, "\t\treturn fmt.Errorf(\"%s: nil object or iterator\")\n", fn)
	b.WriteString("\t}\n")
	b.WriteString("\tvariant, err := dbusrt.ExtractVariant(iter)\n")
	b.WriteString("\tif err != nil {\n\t\treturn dbusrt.ErrNoMemory\n\t}\n")
	fmt.Fprintf(&b, "\tif variant.Sig != dbusrt.Signature(%q) {\n", p.Type)
	fmt.Fprintf(&b, "\t\t%s\n", mismatch)
	b.WriteString("\t}\n")
	fmt.Fprintf(&b, "\tval, ok := variant.Value.(%s)\n", p.ParsedType().GoType(dbustype.DirectionExtract))
	b.WriteString("\tif !ok {\n")
	fmt.Fprintf(&b, "\t\t%s\n", mismatch)
	b.WriteString("\t}\n")
	b.WriteString("\tif !iter.AtEnd() {\n")
	fmt.Fprintf(&b, "\t\t%s\n", mismatch)
	b.WriteString("\t}\n")
	fmt.Fprintf(&b, "\treturn object.%s(val)\n", fn)
	b.WriteString("}\n")

	return gen.Stub{
		Source: b.String(),
		Handlers: []gen.HandlerProto{{
			Name:    fn,
			Params:  []gen.Param{{Name: "val", Type: p.ParsedType().InArgType(dbustype.ReceiverServer)}},
			Results: []gen.Param{{Name: "err", Type: "error"}},
		}},
	}, nil
}

// Signal composes the server-side "send this signal" stub for a single
// Signal: it marshals the signal's arguments into a fresh outbound
// message and hands it to the connection to emit under the signal's
// interface and member name.
func Signal(interfaceName string, s *introspect.Signal, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(s.Symbol)
	serverType := genutil.ServerTypeName(interfaceName)

	var params []string
	for i, arg := range s.Args {
		name := argOrDefault(arg.Name, fmt.Sprintf("arg%d", i))
		params = append(params, fmt.Sprintf("%s %s", name, arg.ParsedType().InArgType(dbustype.ReceiverServer)))
	}

	fmt.Fprintf(&b, "// Send%s marshals and emits the %q signal of\n", fn, s.Name)
	fmt.Fprintf(&b, "// %s.\n", interfaceName)
	fmt.Fprintf(&b, "func (s *%s) Send%s(%s) error {\n", serverType, fn, strings.Join(params, ", "))
	b.WriteString("\tmsg := dbusrt.NewAppendIter(nil)\n")
	for i, arg := range s.Args {
		name := argOrDefault(arg.Name, fmt.Sprintf("arg%d", i))
		frag, err := marshal.Append(arg.ParsedType(), d, "msg", name, "return dbusrt.ErrNoMemory")
		if err != nil {
			return gen.Stub{}, err
		}
		writeIndented(&b, frag.Code, 1)
	}
	fmt.Fprintf(&b, "\treturn s.conn.EmitSignal(%q, %q, msg)\n", interfaceName, s.Name)
	b.WriteString("}\n")

	proto := gen.HandlerProto{Name: "Send" + fn}
	for i, a := range s.Args {
		proto.Params = append(proto.Params, gen.Param{Name: argOrDefault(a.Name, fmt.Sprintf("arg%d", i)), Type: a.ParsedType().InArgType(dbustype.ReceiverServer)})
	}
	proto.Results = []gen.Param{{Name: "err", Type: "error"}}

	return gen.Stub{Source: b.String(), Handlers: []gen.HandlerProto{proto}}, nil
}

func argOrDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func writeIndented(b *strings.Builder, code string, tabs int) {
	prefix := strings.Repeat("\t", tabs)
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteString("\n")
	}
}
