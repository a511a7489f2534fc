package dbusrt_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dbusgen/dbusgen/dbusrt"
)

func TestObjectPathValid(t *testing.T) {
	cases := []struct {
		path dbusrt.ObjectPath
		want bool
	}{
		{"/", true},
		{"/org/example/Foo", true},
		{"", false},
		{"no/leading/slash", false},
		{"/trailing/", false},
		{"/double//slash", false},
		{"/bad-char!", false},
	}
	for _, tc := range cases {
		if got := tc.path.Valid(); got != tc.want {
			t.Errorf("ObjectPath(%q).Valid() = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestAsNoMemory(t *testing.T) {
	noMem := &dbusrt.RemoteError{Name: dbusrt.ErrNoMemoryName, Message: "boom"}
	if got := dbusrt.AsNoMemory(noMem); !errors.Is(got, dbusrt.ErrNoMemory) {
		t.Errorf("AsNoMemory(NoMemory remote error) = %v, want ErrNoMemory", got)
	}

	other := &dbusrt.RemoteError{Name: "org.example.Error.Bad", Message: "nope"}
	if got := dbusrt.AsNoMemory(other); got != other {
		t.Errorf("AsNoMemory(other remote error) = %v, want unchanged", got)
	}
}

func TestIterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := dbusrt.NewAppendIter(&buf)
	if err := w.AppendUint32(42); err != nil {
		t.Fatalf("AppendUint32: %v", err)
	}
	if err := w.AppendString("hello"); err != nil {
		t.Fatalf("AppendString: %v", err)
	}
	if err := w.AppendDouble(3.5); err != nil {
		t.Fatalf("AppendDouble: %v", err)
	}

	r := dbusrt.NewExtractIter(&buf)
	n, err := r.ExtractUint32()
	if err != nil || n != 42 {
		t.Fatalf("ExtractUint32 = %d, %v, want 42, nil", n, err)
	}
	s, err := r.ExtractString()
	if err != nil || s != "hello" {
		t.Fatalf("ExtractString = %q, %v, want \"hello\", nil", s, err)
	}
	d, err := r.ExtractDouble()
	if err != nil || d != 3.5 {
		t.Fatalf("ExtractDouble = %v, %v, want 3.5, nil", d, err)
	}
}

func TestPendingCallDeliversOnce(t *testing.T) {
	p := dbusrt.NewPendingCall(func() {})
	if !p.Deliver() {
		t.Fatal("first Deliver() = false, want true")
	}
	if p.Deliver() {
		t.Fatal("second Deliver() = true, want false")
	}
}

func TestPendingCallCancelPreventsDelivery(t *testing.T) {
	cancelled := false
	p := dbusrt.NewPendingCall(func() { cancelled = true })
	p.Cancel()
	if !cancelled {
		t.Fatal("onCancel was not invoked")
	}
	if p.Deliver() {
		t.Fatal("Deliver() after Cancel() = true, want false")
	}
}
