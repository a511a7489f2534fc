package dbusrt

import "context"

// ClientConn is the transport contract a generated proxy type's conn field
// must satisfy: sending a method call (synchronous or asynchronous) and
// subscribing to a signal. Actual wire I/O — dialing a bus socket, framing
// messages, matching replies to calls — is outside this generator's scope
// (it hands typed records to, and receives typed records from, an
// external collaborator); ClientConn only fixes the shape of that
// collaborator so generated code type-checks against it, the way danderson/
// dbus's Object/Interface pair fixes the shape its generated-by-hand
// bindings call through.
type ClientConn interface {
	// Call sends a method call to path/iface/member with body as its
	// already-marshalled argument list and blocks for the reply. The
	// returned Iter is positioned at the start of the reply body.
	Call(ctx context.Context, path ObjectPath, iface, member string, body *Iter) (*Iter, error)

	// CallAsync sends a method call the same way Call does, but returns
	// immediately with a cancellable handle; reply is invoked at most once,
	// with either the reply body iterator or the call's failure.
	CallAsync(ctx context.Context, path ObjectPath, iface, member string, body *Iter, reply func(*Iter, error)) (*PendingCall, error)

	// ConnectToSignal registers handler to be invoked, with the signal's
	// body iterator, for every incoming signal message matching path,
	// iface and member.
	ConnectToSignal(path ObjectPath, iface, member string, handler func(*Iter)) error
}

// ServerConn is the transport contract a generated adaptor type's conn
// field must satisfy: emitting a signal from the object it exports.
type ServerConn interface {
	// EmitSignal sends body, already marshalled, as the given signal of
	// iface on the object this ServerConn is bound to.
	EmitSignal(iface, member string, body *Iter) error
}
