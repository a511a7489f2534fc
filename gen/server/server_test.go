package server_test

import (
	"strings"
	"testing"

	"github.com/dbusgen/dbusgen/gen/dialect"
	"github.com/dbusgen/dbusgen/gen/server"
	"github.com/dbusgen/dbusgen/introspect"
)

func mustValidate(t *testing.T, doc string) *introspect.Document {
	t.Helper()
	d, err := introspect.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := introspect.Validate(d, "t.xml", []byte(doc)); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return d
}

func TestMethodDispatchNormal(t *testing.T) {
	d := mustValidate(t, `<node>
  <interface name="org.example.Foo">
    <method name="DoThing">
      <arg name="x" type="i" direction="in"/>
      <arg name="y" type="s" direction="out"/>
    </method>
  </interface>
</node>`)
	m := &d.Interfaces[0].Methods[0]
	stub, err := server.MethodDispatch("org.example.Foo", m, dialect.NewGo())
	if err != nil {
		t.Fatalf("MethodDispatch: %v", err)
	}
	if !strings.Contains(stub.Source, "func (s *FooServer) dispatchDoThing") {
		t.Errorf("Source missing dispatch function:\n%s", stub.Source)
	}
	if !strings.Contains(stub.Source, "object.DoThing(") {
		t.Errorf("Source missing handler invocation:\n%s", stub.Source)
	}
	if len(stub.Handlers) != 1 || stub.Handlers[0].Name != "DoThing" {
		t.Errorf("Handlers = %+v, want one named DoThing", stub.Handlers)
	}
}

func TestMethodDispatchNoReplyHasNoOutputs(t *testing.T) {
	d := mustValidate(t, `<node>
  <interface name="org.example.Foo">
    <method name="Ping">
      <annotation name="org.freedesktop.DBus.Method.NoReply" value="true"/>
    </method>
  </interface>
</node>`)
	m := &d.Interfaces[0].Methods[0]
	stub, err := server.MethodDispatch("org.example.Foo", m, dialect.NewGo())
	if err != nil {
		t.Fatalf("MethodDispatch: %v", err)
	}
	if !strings.Contains(stub.Source, "return nil, nil") {
		t.Errorf("NoReply dispatch should return (nil, nil):\n%s", stub.Source)
	}
}

func TestPropertyGetWrapsInVariant(t *testing.T) {
	d := mustValidate(t, `<node>
  <interface name="org.example.Foo">
    <property name="Widget" type="s" access="read"/>
  </interface>
</node>`)
	p := &d.Interfaces[0].Properties[0]
	stub, err := server.PropertyGet("org.example.Foo", p, dialect.NewGo())
	if err != nil {
		t.Fatalf("PropertyGet: %v", err)
	}
	if !strings.Contains(stub.Source, "OpenVariant") || !strings.Contains(stub.Source, "CloseVariant") {
		t.Errorf("Source missing variant wrapping:\n%s", stub.Source)
	}
}

func TestPropertySetChecksVariantSignature(t *testing.T) {
	d := mustValidate(t, `<node>
  <interface name="org.example.Foo">
    <property name="Widget" type="s" access="write"/>
  </interface>
</node>`)
	p := &d.Interfaces[0].Properties[0]
	stub, err := server.PropertySet("org.example.Foo", p, dialect.NewGo())
	if err != nil {
		t.Fatalf("PropertySet: %v", err)
	}
	if !strings.Contains(stub.Source, `variant.Sig != dbusrt.Signature("s")`) {
		t.Errorf("Source missing signature check:\n%s", stub.Source)
	}
	if !strings.Contains(stub.Source, "InvalidArgsError") {
		t.Errorf("Source missing InvalidArgsError recovery:\n%s", stub.Source)
	}
}

func TestSignalMarshalsArgsAndEmits(t *testing.T) {
	d := mustValidate(t, `<node>
  <interface name="org.example.Foo">
    <signal name="ThingHappened">
      <arg name="x" type="i"/>
    </signal>
  </interface>
</node>`)
	s := &d.Interfaces[0].Signals[0]
	stub, err := server.Signal("org.example.Foo", s, dialect.NewGo())
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if !strings.Contains(stub.Source, "func (s *FooServer) SendThingHappened(x int32) error") {
		t.Errorf("Source has unexpected signature:\n%s", stub.Source)
	}
	if !strings.Contains(stub.Source, "msg.AppendInt32(x)") {
		t.Errorf("Source missing argument marshal:\n%s", stub.Source)
	}
	if !strings.Contains(stub.Source, `s.conn.EmitSignal("org.example.Foo", "ThingHappened", msg)`) {
		t.Errorf("Source missing EmitSignal call:\n%s", stub.Source)
	}
}

func TestGenerateFileAssemblesHandlerServerAndDispatch(t *testing.T) {
	d := mustValidate(t, `<node>
  <interface name="org.example.Foo">
    <method name="DoThing">
      <arg name="x" type="i" direction="in"/>
      <arg name="y" type="s" direction="out"/>
    </method>
    <property name="Widget" type="s" access="readwrite"/>
    <signal name="ThingHappened">
      <arg name="x" type="i"/>
    </signal>
  </interface>
</node>`)
	src, err := server.GenerateFile("foogen", d, dialect.NewGo())
	if err != nil {
		t.Fatalf("GenerateFile: %v", err)
	}
	if !strings.Contains(src, "package foogen") {
		t.Errorf("Source missing package clause:\n%s", src)
	}
	if !strings.Contains(src, "type FooServerHandler interface {") {
		t.Errorf("Source missing handler interface:\n%s", src)
	}
	if !strings.Contains(src, "DoThing(x int32, y *string) error") {
		t.Errorf("Source missing method handler signature:\n%s", src)
	}
	if !strings.Contains(src, "Widget() (string, error)") || !strings.Contains(src, "Widget(val string) error") {
		t.Errorf("Source missing property getter/setter handler signatures:\n%s", src)
	}
	if !strings.Contains(src, "type FooServer struct {\n\tconn dbusrt.ServerConn\n}") {
		t.Errorf("Source missing server struct:\n%s", src)
	}
	if !strings.Contains(src, "func NewFooServer(conn dbusrt.ServerConn) *FooServer {") {
		t.Errorf("Source missing constructor:\n%s", src)
	}
	if !strings.Contains(src, `func (s *FooServer) Dispatch(object FooServerHandler, method string, msg *dbusrt.Iter, iter *dbusrt.Iter) (*dbusrt.Iter, error) {`) {
		t.Errorf("Source missing Dispatch function:\n%s", src)
	}
	if !strings.Contains(src, `case "DoThing":`) || !strings.Contains(src, "return s.dispatchDoThing(object, msg, iter)") {
		t.Errorf("Source missing dispatch case for DoThing:\n%s", src)
	}
	if !strings.Contains(src, "func (s *FooServer) SendThingHappened(x int32) error") {
		t.Errorf("Source missing signal sender:\n%s", src)
	}
}
