package clone

import (
	"fmt"
	"sync"
)

// ArrayBuffer owns a byte vector. Transferring it moves the storage out and
// leaves the buffer neutered: zero length, permanently.
type ArrayBuffer struct {
	mu       sync.RWMutex
	data     []byte
	neutered bool
}

// NewArrayBuffer returns a zero-filled buffer of n bytes.
func NewArrayBuffer(n int) *ArrayBuffer {
	return &ArrayBuffer{data: make([]byte, n)}
}

// ArrayBufferOf returns a buffer that takes ownership of b.
func ArrayBufferOf(b []byte) *ArrayBuffer {
	if b == nil {
		b = []byte{}
	}
	return &ArrayBuffer{data: b}
}

func (*ArrayBuffer) Kind() Kind { return KindArrayBuffer }
func (*ArrayBuffer) isValue()   {}

// ByteLength returns the current size; 0 once neutered.
func (b *ArrayBuffer) ByteLength() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// IsNeutered reports whether the contents were transferred away.
func (b *ArrayBuffer) IsNeutered() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.neutered
}

// Bytes returns a copy of the contents.
func (b *ArrayBuffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]byte{}, b.data...)
}

// WriteAt copies p into the buffer at off and returns the number of bytes copied.
func (b *ArrayBuffer) WriteAt(p []byte, off int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off < 0 || off >= len(b.data) {
		return 0
	}
	return copy(b.data[off:], p)
}

// snapshot calls fn with the contents under the read lock.
func (b *ArrayBuffer) snapshot(fn func(data []byte, neutered bool)) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn(b.data, b.neutered)
}

// detach moves the storage out and neuters the buffer.
func (b *ArrayBuffer) detach() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.neutered {
		return nil, ErrNeutered
	}
	data := b.data
	b.data = nil
	b.neutered = true
	return data, nil
}

// ArrayBufferView is a typed window over an ArrayBuffer. After the buffer is
// transferred the view is neutered and observes zero length.
type ArrayBufferView struct {
	Subtype ViewSubtag

	buffer *ArrayBuffer

	mu         sync.RWMutex
	byteOffset uint32
	byteLength uint32
	neutered   bool
}

// NewArrayBufferView checks the geometry of a view over buf and returns it.
func NewArrayBufferView(subtype ViewSubtag, buf *ArrayBuffer, byteOffset, byteLength uint32) (*ArrayBufferView, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrBadView)
	}
	size := subtype.ElementSize()
	if size == 0 {
		return nil, fmt.Errorf("%w: unknown subtype %d", ErrBadView, subtype)
	}
	if byteLength%size != 0 {
		return nil, fmt.Errorf("%w: byte length %d is not a multiple of %d", ErrBadView, byteLength, size)
	}
	if uint64(byteOffset)+uint64(byteLength) > uint64(buf.ByteLength()) {
		return nil, fmt.Errorf("%w: range [%d, +%d) exceeds buffer of %d bytes", ErrBadView, byteOffset, byteLength, buf.ByteLength())
	}
	return &ArrayBufferView{Subtype: subtype, buffer: buf, byteOffset: byteOffset, byteLength: byteLength}, nil
}

func (*ArrayBufferView) Kind() Kind { return KindArrayBufferView }
func (*ArrayBufferView) isValue()   {}

// Buffer returns the backing buffer.
func (v *ArrayBufferView) Buffer() *ArrayBuffer { return v.buffer }

// geometry returns the current window; a view over a neutered buffer is empty.
func (v *ArrayBufferView) geometry() (off, n uint32, neutered bool) {
	v.mu.RLock()
	off, n, neutered = v.byteOffset, v.byteLength, v.neutered
	v.mu.RUnlock()
	if !neutered && v.buffer != nil && v.buffer.IsNeutered() {
		return 0, 0, true
	}
	return off, n, neutered
}

func (v *ArrayBufferView) ByteOffset() uint32 {
	off, _, _ := v.geometry()
	return off
}

func (v *ArrayBufferView) ByteLength() uint32 {
	_, n, _ := v.geometry()
	return n
}

// Len returns the number of elements.
func (v *ArrayBufferView) Len() int {
	size := v.Subtype.ElementSize()
	if size == 0 {
		return 0
	}
	return int(v.ByteLength() / size)
}

// IsNeutered reports whether the view was emptied by a transfer.
func (v *ArrayBufferView) IsNeutered() bool {
	_, _, neutered := v.geometry()
	return neutered
}

// Bytes returns a copy of the bytes the view covers; empty once neutered.
func (v *ArrayBufferView) Bytes() []byte {
	off, n, neutered := v.geometry()
	out := []byte{}
	if neutered || v.buffer == nil {
		return out
	}
	v.buffer.snapshot(func(data []byte, _ bool) {
		if uint64(off)+uint64(n) <= uint64(len(data)) {
			out = append(out, data[off:off+n]...)
		}
	})
	return out
}

// neuter zeroes the geometry of the view. It reports whether anything changed.
func (v *ArrayBufferView) neuter() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.neutered {
		return false
	}
	v.byteOffset, v.byteLength, v.neutered = 0, 0, true
	return true
}
