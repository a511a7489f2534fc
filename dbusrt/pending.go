package dbusrt

import "sync"

// PendingCall is the cancellable handle an async client stub returns
// immediately, before a reply has arrived. Exactly one of the
// continuation supplied to NewPendingCall or Cancel's effect on it takes
// hold: once Cancel has removed the entry, a subsequently arriving reply
// finds no pending call and is dropped.
type PendingCall struct {
	mu        sync.Mutex
	cancelled bool
	done      bool
	onCancel  func()
}

// NewPendingCall constructs a PendingCall. onCancel is invoked at most
// once, the first time Cancel is called before the reply has completed
// it; it should remove the call's entry from whatever table the
// connection's dispatch loop consults to route a reply back to its
// continuation.
func NewPendingCall(onCancel func()) *PendingCall {
	return &PendingCall{onCancel: onCancel}
}

// Cancel requests that the continuation not be invoked. It is safe to
// call more than once or after the call has already completed; only the
// first call before completion has any effect.
func (p *PendingCall) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || p.done {
		return
	}
	p.cancelled = true
	if p.onCancel != nil {
		p.onCancel()
	}
}

// Deliver reports whether the caller may now invoke the continuation:
// true the first time it is called on a call that has not been
// cancelled, false on every call thereafter (including after
// cancellation). It is the synchronization point that guarantees the
// continuation fires at most once.
func (p *PendingCall) Deliver() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || p.done {
		return false
	}
	p.done = true
	return true
}

// Cancelled reports whether Cancel has been called.
func (p *PendingCall) Cancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelled
}
