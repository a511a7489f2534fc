package dbusrt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Iter is the message-iterator type the code gen/marshal and gen/demarshal
// emit calls against: AppendX methods serialize a value of wire type X
// onto an outbound message, ExtractX methods deserialize one off an
// inbound message, and OpenX/CloseX bracket a container so that every
// code path the composers generate — including their out-of-memory and
// type-mismatch recovery branches — opens and closes containers in
// balanced pairs.
//
// Iter is not safe for concurrent use; a generated handler owns one Iter
// per inbound message or per outbound call, for the lifetime of that
// message.
type Iter struct {
	w       io.Writer
	r       io.Reader
	order   binary.ByteOrder
	offset  int
	bodyLen int // -1 until SetBodyLen is called

	// fds carries the out-of-band file descriptors referenced by index
	// from AppendFD/ExtractFD, the way the D-Bus wire format carries FDs
	// alongside rather than inline in the message body.
	fds []*os.File
}

// NewAppendIter returns an Iter that appends onto w.
func NewAppendIter(w io.Writer) *Iter {
	return &Iter{w: w, order: binary.LittleEndian, bodyLen: -1}
}

// NewExtractIter returns an Iter that extracts from r.
func NewExtractIter(r io.Reader) *Iter {
	return &Iter{r: r, order: binary.LittleEndian, bodyLen: -1}
}

// SetBodyLen records the total byte length of the message body this Iter
// reads from, so AtEnd can tell a caller whether any arguments remain
// after the last one it expected.
func (it *Iter) SetBodyLen(n int) { it.bodyLen = n }

// AtEnd reports whether every byte of the message body has been
// consumed. It returns true when SetBodyLen was never called, so a
// caller that does not track body length simply skips the check rather
// than false-reporting trailing arguments.
func (it *Iter) AtEnd() bool {
	if it.bodyLen < 0 {
		return true
	}
	return it.offset >= it.bodyLen
}

func (it *Iter) pad(align int) error {
	extra := it.offset % align
	if extra == 0 {
		return nil
	}
	skip := align - extra
	if it.w != nil {
		if _, err := it.w.Write(make([]byte, skip)); err != nil {
			return ErrNoMemory
		}
	} else {
		if _, err := io.CopyN(io.Discard, it.r, int64(skip)); err != nil {
			return ErrNoMemory
		}
	}
	it.offset += skip
	return nil
}

func (it *Iter) write(b []byte) error {
	if _, err := it.w.Write(b); err != nil {
		return ErrNoMemory
	}
	it.offset += len(b)
	return nil
}

func (it *Iter) read(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(it.r, b); err != nil {
		return nil, ErrNoMemory
	}
	it.offset += n
	return b, nil
}

// AppendByte appends a single byte. Byte is the one fixed-width type with
// no alignment requirement.
func (it *Iter) AppendByte(v byte) error { return it.write([]byte{v}) }

// ExtractByte extracts a single byte.
func (it *Iter) ExtractByte() (byte, error) {
	b, err := it.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// AppendBool appends a boolean, wire-encoded as a 32-bit integer.
func (it *Iter) AppendBool(v bool) error {
	var n uint32
	if v {
		n = 1
	}
	return it.AppendUint32(n)
}

// ExtractBool extracts a boolean.
func (it *Iter) ExtractBool() (bool, error) {
	n, err := it.ExtractUint32()
	return n != 0, err
}

func (it *Iter) appendFixed(align int, v any) error {
	if err := it.pad(align); err != nil {
		return err
	}
	b := make([]byte, align)
	switch x := v.(type) {
	case int16:
		it.order.PutUint16(b, uint16(x))
	case uint16:
		it.order.PutUint16(b, x)
	case int32:
		it.order.PutUint32(b, uint32(x))
	case uint32:
		it.order.PutUint32(b, x)
	case int64:
		it.order.PutUint64(b, uint64(x))
	case uint64:
		it.order.PutUint64(b, x)
	case float64:
		it.order.PutUint64(b, math.Float64bits(x))
	default:
		return fmt.Errorf("dbusrt: unsupported fixed-width type %T", v)
	}
	return it.write(b)
}

func (it *Iter) AppendInt16(v int16) error    { return it.appendFixed(2, v) }
func (it *Iter) AppendUint16(v uint16) error  { return it.appendFixed(2, v) }
func (it *Iter) AppendInt32(v int32) error    { return it.appendFixed(4, v) }
func (it *Iter) AppendUint32(v uint32) error  { return it.appendFixed(4, v) }
func (it *Iter) AppendInt64(v int64) error    { return it.appendFixed(8, v) }
func (it *Iter) AppendUint64(v uint64) error  { return it.appendFixed(8, v) }
func (it *Iter) AppendDouble(v float64) error { return it.appendFixed(8, v) }

func (it *Iter) extractFixed(align int) ([]byte, error) {
	if err := it.pad(align); err != nil {
		return nil, err
	}
	return it.read(align)
}

func (it *Iter) ExtractInt16() (int16, error) {
	b, err := it.extractFixed(2)
	if err != nil {
		return 0, err
	}
	return int16(it.order.Uint16(b)), nil
}

func (it *Iter) ExtractUint16() (uint16, error) {
	b, err := it.extractFixed(2)
	if err != nil {
		return 0, err
	}
	return it.order.Uint16(b), nil
}

func (it *Iter) ExtractInt32() (int32, error) {
	b, err := it.extractFixed(4)
	if err != nil {
		return 0, err
	}
	return int32(it.order.Uint32(b)), nil
}

func (it *Iter) ExtractUint32() (uint32, error) {
	b, err := it.extractFixed(4)
	if err != nil {
		return 0, err
	}
	return it.order.Uint32(b), nil
}

func (it *Iter) ExtractInt64() (int64, error) {
	b, err := it.extractFixed(8)
	if err != nil {
		return 0, err
	}
	return int64(it.order.Uint64(b)), nil
}

func (it *Iter) ExtractUint64() (uint64, error) {
	b, err := it.extractFixed(8)
	if err != nil {
		return 0, err
	}
	return it.order.Uint64(b), nil
}

func (it *Iter) ExtractDouble() (float64, error) {
	b, err := it.extractFixed(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(it.order.Uint64(b)), nil
}

// AppendString appends a length-prefixed UTF-8 string (used for String
// and ObjectPath; Signature uses AppendSignature instead).
func (it *Iter) AppendString(v string) error {
	if err := it.AppendUint32(uint32(len(v))); err != nil {
		return err
	}
	if err := it.write([]byte(v)); err != nil {
		return err
	}
	return it.write([]byte{0})
}

// ExtractString extracts a length-prefixed UTF-8 string.
func (it *Iter) ExtractString() (string, error) {
	n, err := it.ExtractUint32()
	if err != nil {
		return "", err
	}
	b, err := it.read(int(n) + 1)
	if err != nil {
		return "", err
	}
	return string(b[:n]), nil
}

// AppendSignature appends a signature string with its D-Bus one-byte
// length prefix rather than String's four-byte prefix.
func (it *Iter) AppendSignature(v Signature) error {
	if len(v) > 255 {
		return fmt.Errorf("dbusrt: signature %q exceeds 255 bytes", v)
	}
	if err := it.write([]byte{byte(len(v))}); err != nil {
		return err
	}
	if err := it.write([]byte(v)); err != nil {
		return err
	}
	return it.write([]byte{0})
}

// ExtractSignature extracts a signature string.
func (it *Iter) ExtractSignature() (Signature, error) {
	n, err := it.ExtractByte()
	if err != nil {
		return "", err
	}
	b, err := it.read(int(n) + 1)
	if err != nil {
		return "", err
	}
	return Signature(b[:n]), nil
}

// OpenArray writes and reads nothing: this in-memory Iter keeps no array
// byte length, and generated code appends or extracts an explicit uint32
// element count right after OpenArray. OpenArray and CloseArray exist so
// that generated code pairs every container open with a close.
func (it *Iter) OpenArray() error { return nil }

// CloseArray balances OpenArray.
func (it *Iter) CloseArray() error { return nil }

// OpenStruct pads to an 8-byte boundary, the struct alignment.
func (it *Iter) OpenStruct() error { return it.pad(8) }

// CloseStruct balances OpenStruct.
func (it *Iter) CloseStruct() error { return nil }

// OpenDictEntry pads to an 8-byte boundary, the dict-entry alignment.
func (it *Iter) OpenDictEntry() error { return it.pad(8) }

// CloseDictEntry balances OpenDictEntry.
func (it *Iter) CloseDictEntry() error { return nil }

// OpenVariant appends the variant's inner signature.
func (it *Iter) OpenVariant(sig Signature) error { return it.AppendSignature(sig) }

// CloseVariant balances OpenVariant.
func (it *Iter) CloseVariant() error { return nil }

// ExtractVariantSignature extracts the inner signature of a variant about
// to be read, so the demarshaller can dispatch on it before extracting
// the value itself.
func (it *Iter) ExtractVariantSignature() (Signature, error) { return it.ExtractSignature() }

// AppendFD takes ownership of fd and appends its out-of-band index.
func (it *Iter) AppendFD(fd FD) error {
	f := fd.Take()
	if f == nil {
		return fmt.Errorf("dbusrt: AppendFD of an FD that owns no descriptor")
	}
	idx := uint32(len(it.fds))
	it.fds = append(it.fds, f)
	return it.AppendUint32(idx)
}

// ExtractFD reads an out-of-band FD index and returns ownership of the
// corresponding descriptor, previously attached to this Iter by whatever
// transport received the message alongside its body.
func (it *Iter) ExtractFD() (FD, error) {
	idx, err := it.ExtractUint32()
	if err != nil {
		return FD{}, err
	}
	if int(idx) >= len(it.fds) {
		return FD{}, fmt.Errorf("dbusrt: FD index %d out of range", idx)
	}
	return NewFD(it.fds[idx]), nil
}

// AttachFDs records the out-of-band descriptors a transport received
// alongside this message's body, so ExtractFD can resolve indices into
// them. It must be called before any ExtractFD call on this Iter.
func (it *Iter) AttachFDs(fds []*os.File) { it.fds = fds }
