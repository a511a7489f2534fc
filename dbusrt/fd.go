package dbusrt

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FD is the Go representation of the D-Bus "h" basic type: an owned Unix
// file descriptor. Unlike the scalar wire types, an FD has move rather
// than copy semantics: marshalling one onto an outbound message consumes
// it (via Take), and demarshalling one off an inbound message produces a
// new owner. A zero FD owns nothing and is safe to Close.
type FD struct {
	mu   sync.Mutex
	file *os.File
}

// NewFD takes ownership of f and wraps it as an FD. f must not be used by
// the caller afterwards.
func NewFD(f *os.File) FD {
	return FD{file: f}
}

// Fd returns the underlying OS file descriptor number, or -1 if this FD
// owns nothing. The returned number remains valid only as long as this FD
// is not Closed or Taken.
func (h *FD) Fd() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return -1
	}
	return int(h.file.Fd())
}

// Dup returns a new FD wrapping a duplicate of the descriptor this FD
// owns, leaving this FD's ownership untouched. Generated code does not
// call it; the marshaller emits AppendFD.
func (h *FD) Dup() (FD, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return FD{}, fmt.Errorf("dbusrt: Dup of an FD that owns no descriptor")
	}
	newFd, err := unix.Dup(int(h.file.Fd()))
	if err != nil {
		return FD{}, fmt.Errorf("dbusrt: dup: %w", err)
	}
	return FD{file: os.NewFile(uintptr(newFd), h.file.Name())}, nil
}

// Take transfers ownership of the descriptor out of h to the returned
// *os.File, leaving h owning nothing. It is used by the demarshaller to
// hand the caller a descriptor it now owns outright.
func (h *FD) Take() *os.File {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := h.file
	h.file = nil
	return f
}

// Close closes the owned descriptor, if any. Closing an FD that owns
// nothing (the zero value, or one already Taken) is a no-op.
func (h *FD) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}
