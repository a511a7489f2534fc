package server

import (
	"fmt"
	"strings"

	"github.com/dbusgen/dbusgen/dbustype"
	"github.com/dbusgen/dbusgen/gen"
	"github.com/dbusgen/dbusgen/gen/dialect"
	"github.com/dbusgen/dbusgen/genutil"
	"github.com/dbusgen/dbusgen/introspect"
)

// GenerateFile assembles a complete Go source file implementing the
// server (adaptor) side of every interface in doc: for each interface,
// a Handler interface the caller's object type must satisfy, a Server
// type holding a ServerConn in its conn field, and the dispatch/get/set/signal methods
// from MethodDispatch, PropertyGet, PropertySet and Signal.
func GenerateFile(pkg string, doc *introspect.Document, d dialect.Descriptor) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by dbusgen. DO NOT EDIT.\n\npackage %s\n\n", pkg)
	fmt.Fprintf(&b, "import (\n\t\"errors\"\n\t\"fmt\"\n\n\t\"github.com/dbusgen/dbusgen/%s\"\n)\n\n", d.Package())

	for _, itf := range doc.Interfaces {
		if err := writeInterfaceServer(&b, &itf, d); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func writeInterfaceServer(b *strings.Builder, itf *introspect.Interface, d dialect.Descriptor) error {
	serverType := genutil.ServerTypeName(itf.Name)

	fmt.Fprintf(b, "// %s is implemented by callers that export %s as a server-side\n", serverType+"Handler", itf.Name)
	b.WriteString("// object.\n")
	fmt.Fprintf(b, "type %sHandler interface {\n", serverType)
	for _, m := range itf.Methods {
		proto := methodHandlerProto(genutil.ExportedIdentifier(m.Symbol), m.InputArguments(), m.OutputArguments())
		fmt.Fprintf(b, "\t%s\n", protoSignature(proto))
	}
	for _, p := range itf.Properties {
		fn := genutil.ExportedIdentifier(p.Symbol)
		access := introspect.Access(p.Access)
		if access.Readable() {
			fmt.Fprintf(b, "\t%s() (%s, error)\n", fn, p.ParsedType().GoType(dbustype.DirectionAppend))
		}
		if access.Writable() {
			fmt.Fprintf(b, "\t%s(val %s) error\n", fn, p.ParsedType().InArgType(dbustype.ReceiverServer))
		}
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(b, "// %s dispatches incoming method calls and property accesses for\n", serverType)
	fmt.Fprintf(b, "// %s onto a %sHandler, and emits its signals.\n", itf.Name, serverType)
	fmt.Fprintf(b, "type %s struct {\n\tconn %s.ServerConn\n}\n\n", serverType, d.Package())
	fmt.Fprintf(b, "func New%s(conn %s.ServerConn) *%s {\n\treturn &%s{conn: conn}\n}\n\n", serverType, d.Package(), serverType, serverType)

	for _, m := range itf.Methods {
		stub, err := MethodDispatch(itf.Name, &m, d)
		if err != nil {
			return err
		}
		b.WriteString(stub.Source)
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "// Dispatch routes an incoming %s method call, identified by name,\n", itf.Name)
	fmt.Fprintf(b, "// to its generated handler on object.\n")
	fmt.Fprintf(b, "func (s *%s) Dispatch(object %sHandler, method string, msg *dbusrt.Iter, iter *dbusrt.Iter) (*dbusrt.Iter, error) {\n", serverType, serverType)
	fmt.Fprintf(b, "\tswitch method {\n")
	for _, m := range itf.Methods {
		fn := genutil.ExportedIdentifier(m.Symbol)
		fmt.Fprintf(b, "\tcase %q:\n\t\treturn s.dispatch%s(object, msg, iter)\n", m.Name, fn)
	}
	fmt.Fprintf(b, "\tdefault:\n\t\treturn nil, fmt.Errorf(\"%s: unknown method %%q\", method)\n", serverType)
	fmt.Fprintf(b, "\t}\n}\n\n")

	for _, p := range itf.Properties {
		access := introspect.Access(p.Access)
		if access.Readable() {
			stub, err := PropertyGet(itf.Name, &p, d)
			if err != nil {
				return err
			}
			b.WriteString(stub.Source)
			b.WriteString("\n")
		}
		if access.Writable() {
			stub, err := PropertySet(itf.Name, &p, d)
			if err != nil {
				return err
			}
			b.WriteString(stub.Source)
			b.WriteString("\n")
		}
	}
	for _, s := range itf.Signals {
		stub, err := Signal(itf.Name, &s, d)
		if err != nil {
			return err
		}
		b.WriteString(stub.Source)
		b.WriteString("\n")
	}
	return nil
}

// protoSignature renders a gen.HandlerProto as an interface method
// signature, e.g. "DoThing(x int32, y *string) error".
func protoSignature(proto gen.HandlerProto) string {
	var params []string
	for _, p := range proto.Params {
		params = append(params, fmt.Sprintf("%s %s", p.Name, p.Type))
	}
	var results []string
	for _, r := range proto.Results {
		results = append(results, r.Type)
	}
	resultStr := strings.Join(results, ", ")
	if len(results) > 1 {
		resultStr = "(" + resultStr + ")"
	}
	return fmt.Sprintf("%s(%s) %s", proto.Name, strings.Join(params, ", "), resultStr)
}
