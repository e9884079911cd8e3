package clone

import (
	"fmt"
	"math"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Reader decodes little-endian fixed-width fields from a byte slice.
// Every read is bounds-checked; the first failure is latched and all
// subsequent reads become no-ops that return zero values.
type Reader struct {
	b   []byte
	n   int   // current read position
	err error // first error encountered.
}

// NewReader creates a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) Err() error     { return r.err }
func (r *Reader) Offset() int    { return r.n }
func (r *Reader) Remaining() int { return len(r.b) - r.n }

// Rest returns the unread bytes.
func (r *Reader) Rest() []byte { return r.b[r.n:] }

// setError records the first non-nil error.
func (r *Reader) setError(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

// fail latches a validation failure at the current offset.
func (r *Reader) fail(err error, format string, args ...any) {
	r.setError(fmt.Errorf("%w at offset %d: %s", err, r.n, fmt.Sprintf(format, args...)))
}

// take returns the next n bytes, or nil if fewer remain.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.fail(ErrTruncatedData, "need %d bytes, have %d", n, r.Remaining())
		return nil
	}
	p := r.b[r.n : r.n+n]
	r.n += n
	return p
}

// readLE reads sizeof(T) bytes in little-endian order.
func readLE[T constraints.Unsigned](r *Reader) T {
	var v T
	p := r.take(int(unsafe.Sizeof(v)))
	for i := len(p) - 1; i >= 0; i-- {
		v = v<<8 | T(p[i])
	}
	return v
}

// --- Primitive Read Operations ---

func (r *Reader) ReadUint8() uint8   { return readLE[uint8](r) }
func (r *Reader) ReadUint16() uint16 { return readLE[uint16](r) }
func (r *Reader) ReadUint32() uint32 { return readLE[uint32](r) }
func (r *Reader) ReadUint64() uint64 { return readLE[uint64](r) }
func (r *Reader) ReadInt32() int32   { return int32(readLE[uint32](r)) }

func (r *Reader) ReadFloat64() float64 { return math.Float64frombits(readLE[uint64](r)) }

// ReadTag reads one tag byte.
func (r *Reader) ReadTag() Tag { return Tag(r.ReadUint8()) }

// Unread pushes back the last byte read.
func (r *Reader) Unread() {
	if r.err == nil && r.n > 0 {
		r.n--
	}
}

// ReadBytes reads n bytes and returns a new byte slice.
func (r *Reader) ReadBytes(n uint32) []byte {
	if uint64(n) > uint64(math.MaxInt) {
		r.fail(ErrTruncatedData, "length %d", n)
		return nil
	}
	p := r.take(int(n))
	if p == nil {
		return nil
	}
	return append(make([]byte, 0, len(p)), p...)
}

// ReadUTF16 reads length UTF-16 code units and decodes them.
func (r *Reader) ReadUTF16(length uint32) string {
	if uint64(length)*2 > uint64(r.Remaining()) {
		r.fail(ErrTruncatedData, "string of %d code units", length)
		return ""
	}
	p := r.take(int(length) * 2)
	if p == nil {
		return ""
	}
	units := make([]uint16, length)
	for i := range units {
		units[i] = uint16(p[2*i]) | uint16(p[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}

// ReadPoolIndex mirrors Writer.WritePoolIndex for a pool of the given size.
func (r *Reader) ReadPoolIndex(size int) uint32 {
	switch {
	case size <= math.MaxUint8:
		return uint32(r.ReadUint8())
	case size <= math.MaxUint16:
		return uint32(r.ReadUint16())
	default:
		return r.ReadUint32()
	}
}
