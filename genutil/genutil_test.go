package genutil_test

import (
	"testing"

	"github.com/dbusgen/dbusgen/genutil"
)

func TestServerClientTypeName(t *testing.T) {
	const itf = "org.example.Foo"
	if got, want := genutil.ServerTypeName(itf), "FooServer"; got != want {
		t.Errorf("ServerTypeName(%q) = %q, want %q", itf, got, want)
	}
	if got, want := genutil.ClientTypeName(itf), "FooClient"; got != want {
		t.Errorf("ClientTypeName(%q) = %q, want %q", itf, got, want)
	}
}

func TestExportedIdentifier(t *testing.T) {
	cases := []struct {
		symbol string
		want   string
	}{
		{"get_widget", "GetWidget"},
		{"get_widget_by_id", "GetWidgetByID"},
		{"do_thing", "DoThing"},
		{"widget", "Widget"},
		{"fetch_url", "FetchURL"},
	}
	for _, tc := range cases {
		if got := genutil.ExportedIdentifier(tc.symbol); got != tc.want {
			t.Errorf("ExportedIdentifier(%q) = %q, want %q", tc.symbol, got, tc.want)
		}
	}
}

func TestNameSpaces(t *testing.T) {
	got := genutil.NameSpaces("org.example.Foo")
	want := []string{"org", "example"}
	if len(got) != len(want) {
		t.Fatalf("NameSpaces length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NameSpaces[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
