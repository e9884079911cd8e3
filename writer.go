package clone

import (
	"math"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Writer appends little-endian fixed-width fields to a growable buffer.
// It tracks the first error that occurs; after an error every write is a no-op.
type Writer struct {
	buf    []byte
	err    error // first error encountered. Subsequent writes become no-ops.
	pooled *[]byte
}

// NewWriter returns a Writer whose initial storage is borrowed from a pool.
// Call Release once the written bytes are no longer needed.
func NewWriter() *Writer {
	p := bytesBufPool.Get().(*[]byte)
	return &Writer{buf: (*p)[:0], pooled: p}
}

// appendLE appends v in little-endian order using exactly sizeof(T) bytes.
func appendLE[T constraints.Unsigned](buf []byte, v T) []byte {
	for i := uintptr(0); i < unsafe.Sizeof(v); i++ {
		buf = append(buf, byte(v))
		v >>= 8
	}
	return buf
}

func (w *Writer) Len() int      { return len(w.buf) }
func (w *Writer) Err() error    { return w.err }
func (w *Writer) Bytes() []byte { return w.buf }

// setError records the first non-nil error.
func (w *Writer) setError(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

// Release hands the storage back to the pool. The Writer must not be used afterwards.
func (w *Writer) Release() {
	if w.pooled == nil {
		return
	}
	if cap(w.buf) <= maxPooledSize {
		*w.pooled = w.buf[:0]
		bytesBufPool.Put(w.pooled)
	}
	w.buf, w.pooled = nil, nil
}

// --- Primitive Write Operations ---

func (w *Writer) WriteTag(t Tag) { w.WriteUint8(uint8(t)) }

func (w *Writer) WriteUint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = appendLE(w.buf, v)
}

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	w.buf = appendLE(w.buf, v)
}

func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	w.buf = appendLE(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteBytes writes a raw byte slice.
func (w *Writer) WriteBytes(p []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, p...)
}

// WriteUTF16 writes each code unit in units as two little-endian bytes.
func (w *Writer) WriteUTF16(units []uint16) {
	if w.err != nil {
		return
	}
	for _, u := range units {
		w.buf = appendLE(w.buf, u)
	}
}

// WritePoolIndex writes i using the narrowest width that can address a pool of
// the given size: 1 byte up to 0xFF entries, 2 bytes up to 0xFFFF, 4 otherwise.
func (w *Writer) WritePoolIndex(size int, i uint32) {
	switch {
	case size <= math.MaxUint8:
		w.WriteUint8(uint8(i))
	case size <= math.MaxUint16:
		w.WriteUint16(uint16(i))
	default:
		w.WriteUint32(i)
	}
}

// utf16Units converts s to the UTF-16 code units that are written on the wire.
func utf16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
