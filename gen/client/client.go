// Package client composes the client-side stub functions: synchronous
// property get/set, synchronous method call, and the asynchronous
// method-call pair (caller-facing call plus reply dispatch function).
// Each composer builds a method-call message, sends it with the
// appropriate wait discipline, translates remote errors, and demarshals
// the reply. The synchronous property getter and method call stubs retry
// their whole round trip — the
// call and the demarshalling of its reply — on an out-of-memory failure,
// up to dbusrt.MaxNoMemoryRetries times, since either side of that round
// trip can fail to allocate independently of the other.
package client

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

const propertiesInterface = "org.freedesktop.DBus.Properties"

func deprecatedComment(deprecated bool, name string) string {
	if !deprecated {
		return ""
	}
	return fmt.Sprintf("//\n// Deprecated: %s is marked deprecated in its interface description.\n", name)
}

// PropertyGet composes the synchronous client-side property getter: it
// builds a Properties.Get call, sends it, translates the reply error (a
// NoMemory remote error becomes the local ErrNoMemory), confirms the
// reply carries exactly one variant, and demarshals the property's value
// out of it. The call, and the demarshalling of its reply, run inside a
// retry loop: an out-of-memory failure on either side retries the whole
// round trip rather than giving up immediately, since the peer may simply
// need to be asked again.
func PropertyGet(interfaceName string, p *introspect.Property, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(p.Symbol)
	clientType := genutil.ClientTypeName(interfaceName)
	goType := p.ParsedType().GoType(dbustype.DirectionExtract)
	mismatch := fmt.Sprintf("return zero, &dbusrt.InvalidArgsError{Member: %q}", p.Name)

	b.WriteString(deprecatedComment(p.Deprecated(), fn))
	fmt.Fprintf(&b, "// Get%s sends a synchronous Properties.Get call for the %q property of\n", fn, p.Name)
	fmt.Fprintf(&b, "// %s and blocks for the reply, retrying the round trip up to\n", interfaceName)
	fmt.Fprintf(&b, "// dbusrt.MaxNoMemoryRetries times on an out-of-memory failure.\n")
	fmt.Fprintf(&b, "func (c *%s) Get%s(ctx context.Context) (%s, error) {\n", clientType, fn, goType)
	fmt.Fprintf(&b, "\tvar zero %s\n", goType)
	b.WriteString("\tfor attempt := 0; attempt < dbusrt.MaxNoMemoryRetries; attempt++ {\n")
	fmt.Fprintf(&b, "\t\treply, err := c.conn.Call(ctx, c.path, %q, \"Get\", %q, %q)\n", propertiesInterface, interfaceName, p.Name)
	b.WriteString("\t\tif err != nil {\n")
	b.WriteString("\t\t\tif re, ok := err.(*dbusrt.RemoteError); ok && re.Name == dbusrt.ErrNoMemoryName {\n")
	b.WriteString("\t\t\t\tcontinue\n")
	b.WriteString("\t\t\t}\n")
	b.WriteString("\t\t\treturn zero, err\n")
	b.WriteString("\t\t}\n")
	b.WriteString("\t\tvariant, err := dbusrt.ExtractVariant(reply)\n")
	b.WriteString("\t\tif err != nil {\n\t\t\tcontinue\n\t\t}\n")
	b.WriteString("\t\tif !reply.AtEnd() {\n")
	fmt.Fprintf(&b, "\t\t\t%s\n", mismatch)
	b.WriteString("\t\t}\n")
	fmt.Fprintf(&b, "\t\tval, ok := variant.Value.(%s)\n", goType)
	b.WriteString("\t\tif !ok {\n")
	fmt.Fprintf(&b, "\t\t\t%s\n", mismatch)
	b.WriteString("\t\t}\n")
	b.WriteString("\t\treturn val, nil\n")
	b.WriteString("\t}\n")
	b.WriteString("\treturn zero, dbusrt.ErrNoMemory\n")
	b.WriteString("}\n")

	return gen.Stub{
		Source: b.String(),
		Handlers: []gen.HandlerProto{{
			Name:    "Get" + fn,
			Results: []gen.Param{{Name: "val", Type: p.ParsedType().GoType(dbustype.DirectionExtract)}, {Name: "err", Type: "error"}},
		}},
	}, nil
}

// PropertySet composes the synchronous client-side property setter: it
// wraps val in a variant of the property's declared signature, builds a
// Properties.Set call, sends it, and verifies the reply carries no
// arguments.
func PropertySet(interfaceName string, p *introspect.Property, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(p.Symbol)
	clientType := genutil.ClientTypeName(interfaceName)

	b.WriteString(deprecatedComment(p.Deprecated(), fn))
	fmt.Fprintf(&b, "// Set%s sends a synchronous Properties.Set call for the %q property of\n", fn, p.Name)
	fmt.Fprintf(&b, "// %s and blocks for the reply.\n", interfaceName)
	fmt.Fprintf(&b, "func (c *%s) Set%s(ctx context.Context, val %s) error {\n", clientType, fn, p.ParsedType().InArgType(dbustype.ReceiverClient))
	b.WriteString("\tbody := dbusrt.NewAppendIter(nil)\n")
	fmt.Fprintf(&b, "\tif err := body.AppendSignature(dbusrt.Signature(%q)); err != nil {\n", p.Type)
	b.WriteString("\t\treturn dbusrt.ErrNoMemory\n\t}\n")
	frag, err := marshal.Append(p.ParsedType(), d, "body", "val", "return dbusrt.ErrNoMemory")
	if err != nil {
		return gen.Stub{}, err
	}
	writeIndented(&b, frag.Code, 1)
	fmt.Fprintf(&b, "\t_, err := c.conn.Call(ctx, c.path, %q, \"Set\", %q, %q, body)\n", propertiesInterface, interfaceName, p.Name)
	b.WriteString("\treturn dbusrt.AsNoMemory(err)\n")
	b.WriteString("}\n")

	return gen.Stub{
		Source: b.String(),
		Handlers: []gen.HandlerProto{{
			Name:    "Set" + fn,
			Params:  []gen.Param{{Name: "val", Type: p.ParsedType().InArgType(dbustype.ReceiverClient)}},
			Results: []gen.Param{{Name: "err", Type: "error"}},
		}},
	}, nil
}

// SyncCall composes the synchronous client-side method call stub: it
// marshals each input argument once, then sends the call and demarshals
// each declared output argument inside a labeled retry loop — an
// out-of-memory failure on the call itself or on any output argument's
// demarshalling retries the round trip, up to dbusrt.MaxNoMemoryRetries
// times, rather than returning immediately. The loop is labeled because
// a compound output argument's demarshalling fragment may itself contain
// a for loop (over an array's elements); that inner loop's own
// out-of-memory path must retry the outer call, not merely continue
// iterating over elements the reply no longer has.
func SyncCall(interfaceName string, m *introspect.Method, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(m.Symbol)
	clientType := genutil.ClientTypeName(interfaceName)
	ins := m.InputArguments()
	outs := m.OutputArguments()
	mismatchErr := fmt.Sprintf("&dbusrt.InvalidArgsError{Member: %q}", m.Name)

	var params []string
	for i, arg := range ins {
		name := argOrDefault(arg.Name, fmt.Sprintf("in%d", i))
		params = append(params, fmt.Sprintf("%s %s", name, arg.ParsedType().InArgType(dbustype.ReceiverClient)))
	}
	var results []string
	for i, arg := range outs {
		results = append(results, fmt.Sprintf("%s %s", argOrDefault(arg.Name, fmt.Sprintf("out%d", i)), arg.ParsedType().GoType(dbustype.DirectionExtract)))
	}
	results = append(results, "err error")

	b.WriteString(deprecatedComment(m.Deprecated(), fn))
	fmt.Fprintf(&b, "// %s invokes the %q method of %s synchronously, retrying the round\n", fn, m.Name, interfaceName)
	fmt.Fprintf(&b, "// trip up to dbusrt.MaxNoMemoryRetries times on an out-of-memory failure.\n")
	fmt.Fprintf(&b, "func (c *%s) %s(%s) (%s) {\n", clientType, fn, strings.Join(append([]string{"ctx context.Context"}, params...), ", "), strings.Join(results, ", "))
	var outNames []string
	for i, arg := range outs {
		name := argOrDefault(arg.Name, fmt.Sprintf("out%d", i))
		outNames = append(outNames, name)
		fmt.Fprintf(&b, "\tvar %s %s\n", name, arg.ParsedType().GoType(dbustype.DirectionExtract))
	}
	b.WriteString("\tbody := dbusrt.NewAppendIter(nil)\n")
	for i, arg := range ins {
		name := argOrDefault(arg.Name, fmt.Sprintf("in%d", i))
		frag, err := marshal.Append(arg.ParsedType(), d, "body", name, returnWith(outNames, "dbusrt.ErrNoMemory"))
		if err != nil {
			return gen.Stub{}, err
		}
		writeIndented(&b, frag.Code, 1)
	}
	b.WriteString("retry:\n")
	b.WriteString("\tfor attempt := 0; attempt < dbusrt.MaxNoMemoryRetries; attempt++ {\n")
	fmt.Fprintf(&b, "\t\treply, callErr := c.conn.Call(ctx, c.path, %q, %q, body)\n", interfaceName, m.Name)
	b.WriteString("\t\tif callErr != nil {\n")
	b.WriteString("\t\t\tif dbusrt.AsNoMemory(callErr) == dbusrt.ErrNoMemory {\n")
	b.WriteString("\t\t\t\tcontinue retry\n")
	b.WriteString("\t\t\t}\n")
	fmt.Fprintf(&b, "\t\t\t%s\n", returnWith(outNames, "callErr"))
	b.WriteString("\t\t}\n")
	for i, arg := range outs {
		frag, err := demarshal.Extract(arg.ParsedType(), d, "reply", outNames[i],
			"continue retry", returnWith(outNames, mismatchErr))
		if err != nil {
			return gen.Stub{}, err
		}
		writeIndented(&b, frag.Code, 2)
	}
	b.WriteString("\t\tif !reply.AtEnd() {\n")
	fmt.Fprintf(&b, "\t\t\t%s\n", returnWith(outNames, mismatchErr))
	b.WriteString("\t\t}\n")
	fmt.Fprintf(&b, "\t\t%s\n", returnWith(outNames, "nil"))
	b.WriteString("\t}\n")
	fmt.Fprintf(&b, "\t%s\n", returnWith(outNames, "dbusrt.ErrNoMemory"))
	b.WriteString("}\n")

	proto := gen.HandlerProto{Name: fn}
	for i, a := range ins {
		proto.Params = append(proto.Params, gen.Param{Name: argOrDefault(a.Name, fmt.Sprintf("in%d", i)), Type: a.ParsedType().InArgType(dbustype.ReceiverClient)})
	}
	for i, a := range outs {
		proto.Results = append(proto.Results, gen.Param{Name: argOrDefault(a.Name, fmt.Sprintf("out%d", i)), Type: a.ParsedType().GoType(dbustype.DirectionExtract)})
	}
	proto.Results = append(proto.Results, gen.Param{Name: "err", Type: "error"})

	return gen.Stub{Source: b.String(), Handlers: []gen.HandlerProto{proto}}, nil
}

// AsyncCall composes the asynchronous method-call pair: a
// caller-facing function that builds and sends the call and returns a
// cancellable *dbusrt.PendingCall, and a dispatch function (installed by
// the caller as the reply callback) that demarshals the outputs and
// invokes the user-supplied continuation at most once.
func AsyncCall(interfaceName string, m *introspect.Method, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(m.Symbol)
	clientType := genutil.ClientTypeName(interfaceName)
	ins := m.InputArguments()
	outs := m.OutputArguments()
	mismatchErr := fmt.Sprintf("&dbusrt.InvalidArgsError{Member: %q}", m.Name)

	var params []string
	for i, arg := range ins {
		name := argOrDefault(arg.Name, fmt.Sprintf("in%d", i))
		params = append(params, fmt.Sprintf("%s %s", name, arg.ParsedType().InArgType(dbustype.ReceiverClient)))
	}
	var outNames []string
	var contResults []string
	for i, arg := range outs {
		name := argOrDefault(arg.Name, fmt.Sprintf("out%d", i))
		outNames = append(outNames, name)
		contResults = append(contResults, fmt.Sprintf("%s %s", name, arg.ParsedType().GoType(dbustype.DirectionExtract)))
	}
	contParams := append(append([]string{}, contResults...), "err error")

	b.WriteString(deprecatedComment(m.Deprecated(), fn))
	fmt.Fprintf(&b, "// %sAsync invokes the %q method of %s asynchronously, invoking\n", fn, m.Name, interfaceName)
	fmt.Fprintf(&b, "// continuation at most once when the reply arrives or the call fails.\n")
	fmt.Fprintf(&b, "func (c *%s) %sAsync(ctx context.Context, %scontinuation func(%s)) (*dbusrt.PendingCall, error) {\n",
		clientType, fn, paramsWithTrailingComma(params), strings.Join(contParams, ", "))
	b.WriteString("\tbody := dbusrt.NewAppendIter(nil)\n")
	for i, arg := range ins {
		name := argOrDefault(arg.Name, fmt.Sprintf("in%d", i))
		frag, err := marshal.Append(arg.ParsedType(), d, "body", name, "return nil, dbusrt.ErrNoMemory")
		if err != nil {
			return gen.Stub{}, err
		}
		writeIndented(&b, frag.Code, 1)
	}
	fmt.Fprintf(&b, "\treturn c.conn.CallAsync(ctx, c.path, %q, %q, body, func(reply *dbusrt.Iter, callErr error) {\n", interfaceName, m.Name)
	for i, arg := range outs {
		fmt.Fprintf(&b, "\t\tvar %s %s\n", outNames[i], arg.ParsedType().GoType(dbustype.DirectionExtract))
	}
	b.WriteString("\t\tif callErr != nil {\n")
	fmt.Fprintf(&b, "\t\t\t%s\n", continuationWith(outNames, "dbusrt.AsNoMemory(callErr)"))
	b.WriteString("\t\t\treturn\n")
	b.WriteString("\t\t}\n")
	for i, arg := range outs {
		frag, err := demarshal.Extract(arg.ParsedType(), d, "reply", outNames[i],
			continuationWith(outNames, "dbusrt.ErrNoMemory")+"; return",
			continuationWith(outNames, mismatchErr)+"; return")
		if err != nil {
			return gen.Stub{}, err
		}
		writeIndented(&b, frag.Code, 2)
	}
	b.WriteString("\t\tif !reply.AtEnd() {\n")
	fmt.Fprintf(&b, "\t\t\t%s\n", continuationWith(outNames, mismatchErr)+"; return")
	b.WriteString("\t\t}\n")
	fmt.Fprintf(&b, "\t\t%s\n", continuationWith(outNames, "nil"))
	b.WriteString("\t})\n")
	b.WriteString("}\n")

	return gen.Stub{
		Source: b.String(),
		Handlers: []gen.HandlerProto{{
			Name:   fn + "Async",
			Params: append(toParams(ins, dbustype.ReceiverClient, true), gen.Param{Name: "continuation", Type: "func(...)"}),
			Results: []gen.Param{
				{Name: "pending", Type: "*dbusrt.PendingCall"},
				{Name: "err", Type: "error"},
			},
		}},
	}, nil
}

// Signal composes the client-side "subscribe to this signal" stub for a
// single Signal: it registers a handler with the connection's
// ConnectToSignal primitive, which demarshals the signal's arguments off
// each matching incoming message and invokes handler with them.
func Signal(interfaceName string, s *introspect.Signal, d dialect.Descriptor) (gen.Stub, error) {
	var b strings.Builder
	fn := genutil.ExportedIdentifier(s.Symbol)
	clientType := genutil.ClientTypeName(interfaceName)
	mismatch := fmt.Sprintf("return &dbusrt.InvalidArgsError{Member: %q}", s.Name)

	var handlerParams []string
	var argNames []string
	for i, arg := range s.Args {
		name := argOrDefault(arg.Name, fmt.Sprintf("arg%d", i))
		argNames = append(argNames, name)
		handlerParams = append(handlerParams, fmt.Sprintf("%s %s", name, arg.ParsedType().GoType(dbustype.DirectionExtract)))
	}

	fmt.Fprintf(&b, "// Register%sSignalHandler subscribes handler to the %q signal of\n", fn, s.Name)
	fmt.Fprintf(&b, "// %s; handler is invoked once per matching incoming signal message.\n", interfaceName)
	fmt.Fprintf(&b, "func (c *%s) Register%sSignalHandler(handler func(%s)) error {\n", clientType, fn, strings.Join(handlerParams, ", "))
	fmt.Fprintf(&b, "\treturn c.conn.ConnectToSignal(c.path, %q, %q, func(msg *dbusrt.Iter) {\n", interfaceName, s.Name)
	for i, arg := range s.Args {
		fmt.Fprintf(&b, "\t\tvar %s %s\n", argNames[i], arg.ParsedType().GoType(dbustype.DirectionExtract))
		frag, err := demarshal.Extract(arg.ParsedType(), d, "msg", argNames[i], "return", mismatch)
		if err != nil {
			return gen.Stub{}, err
		}
		writeIndented(&b, frag.Code, 2)
	}
	fmt.Fprintf(&b, "\t\thandler(%s)\n", strings.Join(argNames, ", "))
	b.WriteString("\t})\n")
	b.WriteString("}\n")

	proto := gen.HandlerProto{Name: "Register" + fn + "SignalHandler"}
	for i, a := range s.Args {
		proto.Params = append(proto.Params, gen.Param{Name: argOrDefault(a.Name, fmt.Sprintf("arg%d", i)), Type: a.ParsedType().GoType(dbustype.DirectionExtract)})
	}
	proto.Results = []gen.Param{{Name: "err", Type: "error"}}

	return gen.Stub{Source: b.String(), Handlers: []gen.HandlerProto{proto}}, nil
}

// returnWith renders a return statement that returns each already-declared
// output local by name, followed by errExpr as the final result.
func returnWith(outNames []string, errExpr string) string {
	var b strings.Builder
	b.WriteString("return ")
	for _, name := range outNames {
		b.WriteString(name)
		b.WriteString(", ")
	}
	b.WriteString(errExpr)
	return b.String()
}

// continuationWith renders a call to the continuation function, passing
// each already-declared output local by name followed by errExpr.
func continuationWith(outNames []string, errExpr string) string {
	var b strings.Builder
	b.WriteString("continuation(")
	for _, name := range outNames {
		b.WriteString(name)
		b.WriteString(", ")
	}
	b.WriteString(errExpr)
	b.WriteString(")")
	return b.String()
}

func toParams(args []introspect.Argument, r dbustype.Receiver, in bool) []gen.Param {
	var out []gen.Param
	for i, a := range args {
		typ := a.ParsedType().InArgType(r)
		if !in {
			typ = a.ParsedType().OutArgType(r)
		}
		out = append(out, gen.Param{Name: argOrDefault(a.Name, fmt.Sprintf("arg%d", i)), Type: typ})
	}
	return out
}

func paramsWithTrailingComma(params []string) string {
	if len(params) == 0 {
		return ""
	}
	return strings.Join(params, ", ") + ", "
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
