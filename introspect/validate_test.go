package introspect_test

import (
	"strings"
	"testing"

	"github.com/dbusgen/dbusgen/introspect"
)

func mustParse(t *testing.T, doc string) *introspect.Document {
	t.Helper()
	d, err := introspect.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestValidateSuccess(t *testing.T) {
	const doc = `<node>
  <interface name="org.example.Foo">
    <method name="DoThing">
      <arg name="x" type="i" direction="in"/>
      <arg name="y" type="s" direction="out"/>
    </method>
    <signal name="ThingHappened">
      <arg name="x" type="i"/>
    </signal>
    <property name="Widget" type="s" access="readwrite"/>
  </interface>
</node>`
	d := mustParse(t, doc)
	if err := introspect.Validate(d, "foo.xml", []byte(doc)); err != nil {
		t.Fatalf("Validate: unexpected error: %v", err)
	}
	itf := d.Interfaces[0]
	if got, want := itf.Methods[0].Symbol, "do_thing"; got != want {
		t.Errorf("method symbol = %q, want %q", got, want)
	}
	if got, want := itf.Signals[0].Symbol, "thing_happened"; got != want {
		t.Errorf("signal symbol = %q, want %q", got, want)
	}
	if got, want := itf.Properties[0].Symbol, "widget"; got != want {
		t.Errorf("property symbol = %q, want %q", got, want)
	}
}

func TestValidateDuplicateSymbol(t *testing.T) {
	const doc = `<node>
  <interface name="org.example.Foo">
    <method name="TestFoo"/>
    <method name="test_foo"/>
  </interface>
</node>`
	d := mustParse(t, doc)
	err := introspect.Validate(d, "foo.xml", []byte(doc))
	if err == nil {
		t.Fatal("Validate: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "DuplicateSymbol") {
		t.Errorf("Validate error %v does not mention DuplicateSymbol", err)
	}
}

func TestValidateMalformedSignature(t *testing.T) {
	const doc = `<node>
  <interface name="org.example.Foo">
    <method name="Do">
      <arg name="x" type="a{s" direction="in"/>
    </method>
  </interface>
</node>`
	d := mustParse(t, doc)
	err := introspect.Validate(d, "foo.xml", []byte(doc))
	if err == nil {
		t.Fatal("Validate: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "MalformedSignature") {
		t.Errorf("Validate error %v does not mention MalformedSignature", err)
	}
}

func TestValidateIllegalAccess(t *testing.T) {
	const doc = `<node>
  <interface name="org.example.Foo">
    <property name="P" type="s" access="bogus"/>
  </interface>
</node>`
	d := mustParse(t, doc)
	err := introspect.Validate(d, "foo.xml", []byte(doc))
	if err == nil {
		t.Fatal("Validate: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "IllegalAccess") {
		t.Errorf("Validate error %v does not mention IllegalAccess", err)
	}
}

func TestValidateMalformedInterfaceName(t *testing.T) {
	const doc = `<node>
  <interface name="NotDotted">
  </interface>
</node>`
	d := mustParse(t, doc)
	err := introspect.Validate(d, "foo.xml", []byte(doc))
	if err == nil {
		t.Fatal("Validate: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "MalformedName") {
		t.Errorf("Validate error %v does not mention MalformedName", err)
	}
}

func TestValidateUnknownAnnotation(t *testing.T) {
	const doc = `<node>
  <interface name="org.example.Foo">
    <method name="Do">
      <annotation name="org.example.Bogus" value="1"/>
    </method>
  </interface>
</node>`
	d := mustParse(t, doc)
	err := introspect.Validate(d, "foo.xml", []byte(doc))
	if err == nil {
		t.Fatal("Validate: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "UnknownAnnotation") {
		t.Errorf("Validate error %v does not mention UnknownAnnotation", err)
	}
}

func TestValidateSymbolAnnotationOverride(t *testing.T) {
	const doc = `<node>
  <interface name="org.example.Foo">
    <method name="Do">
      <annotation name="Symbol" value="do_it_now"/>
    </method>
  </interface>
</node>`
	d := mustParse(t, doc)
	if err := introspect.Validate(d, "foo.xml", []byte(doc)); err != nil {
		t.Fatalf("Validate: unexpected error: %v", err)
	}
	if got, want := d.Interfaces[0].Methods[0].Symbol, "do_it_now"; got != want {
		t.Errorf("method symbol = %q, want %q", got, want)
	}
}

func TestValidateNoReplyWithOutputRejected(t *testing.T) {
	const doc = `<node>
  <interface name="org.example.Foo">
    <method name="Do">
      <arg name="x" type="i" direction="out"/>
      <annotation name="org.freedesktop.DBus.Method.NoReply" value="true"/>
    </method>
  </interface>
</node>`
	d := mustParse(t, doc)
	err := introspect.Validate(d, "foo.xml", []byte(doc))
	if err == nil {
		t.Fatal("Validate: expected error, got nil")
	}
}
