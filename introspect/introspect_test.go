package introspect_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dbusgen/dbusgen/introspect"
)

func TestInputArguments(t *testing.T) {
	m := introspect.Method{
		Name: "f",
		Args: []introspect.Argument{
			{Name: "x1", Direction: "in", Type: "i"},
			{Name: "x2", Direction: "", Type: "i"},
			{Name: "x3", Direction: "out", Type: "i"},
		},
	}
	got := m.InputArguments()
	want := []introspect.Argument{
		{Name: "x1", Direction: "in", Type: "i"},
		{Name: "x2", Direction: "", Type: "i"},
	}
	if diff := cmp.Diff(got, want, cmpopts.IgnoreUnexported(introspect.Argument{})); diff != "" {
		t.Errorf("InputArguments diff (-got +want):\n%s", diff)
	}
}

func TestOutputArguments(t *testing.T) {
	m := introspect.Method{
		Name: "f",
		Args: []introspect.Argument{
			{Name: "x1", Direction: "in", Type: "i"},
			{Name: "x3", Direction: "out", Type: "i"},
		},
	}
	got := m.OutputArguments()
	want := []introspect.Argument{
		{Name: "x3", Direction: "out", Type: "i"},
	}
	if diff := cmp.Diff(got, want, cmpopts.IgnoreUnexported(introspect.Argument{})); diff != "" {
		t.Errorf("OutputArguments diff (-got +want):\n%s", diff)
	}
}

func TestMethodKind(t *testing.T) {
	cases := []struct {
		name  string
		input introspect.Method
		want  introspect.MethodKind
	}{
		{
			name: "no annotations",
			input: introspect.Method{
				Name: "f1",
			},
			want: introspect.MethodKindNormal,
		},
		{
			name: "no reply",
			input: introspect.Method{
				Name: "f2",
				Annotations: []introspect.Annotation{
					{Name: "org.freedesktop.DBus.Method.NoReply", Value: "true"},
				},
			},
			want: introspect.MethodKindNoReply,
		},
		{
			name: "async",
			input: introspect.Method{
				Name: "f3",
				Annotations: []introspect.Annotation{
					{Name: "org.chromium.DBus.Method.Async", Value: "true"},
				},
			},
			want: introspect.MethodKindAsync,
		},
	}
	for _, tc := range cases {
		if got := tc.input.Kind(); got != tc.want {
			t.Errorf("%s: Kind() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestEmitsChangedSignal(t *testing.T) {
	cases := []struct {
		name  string
		input introspect.Property
		want  introspect.ChangeSignalBehavior
	}{
		{"default", introspect.Property{Name: "P"}, introspect.ChangeSignalTrue},
		{"false", introspect.Property{Name: "P", Annotations: []introspect.Annotation{
			{Name: "org.freedesktop.DBus.Property.EmitsChangedSignal", Value: "false"},
		}}, introspect.ChangeSignalFalse},
		{"invalidates", introspect.Property{Name: "P", Annotations: []introspect.Annotation{
			{Name: "org.freedesktop.DBus.Property.EmitsChangedSignal", Value: "invalidates"},
		}}, introspect.ChangeSignalInvalidates},
		{"const", introspect.Property{Name: "P", Annotations: []introspect.Annotation{
			{Name: "org.freedesktop.DBus.Property.EmitsChangedSignal", Value: "const"},
		}}, introspect.ChangeSignalConst},
	}
	for _, tc := range cases {
		if got := tc.input.EmitsChangedSignal(); got != tc.want {
			t.Errorf("%s: EmitsChangedSignal() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAccess(t *testing.T) {
	cases := []struct {
		access       introspect.Access
		readable     bool
		writable     bool
	}{
		{introspect.AccessRead, true, false},
		{introspect.AccessWrite, false, true},
		{introspect.AccessReadWrite, true, true},
	}
	for _, tc := range cases {
		if got := tc.access.Readable(); got != tc.readable {
			t.Errorf("%v.Readable() = %v, want %v", tc.access, got, tc.readable)
		}
		if got := tc.access.Writable(); got != tc.writable {
			t.Errorf("%v.Writable() = %v, want %v", tc.access, got, tc.writable)
		}
	}
}
