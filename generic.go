package clone

import (
	"bytes"
	"encoding"
	"io"
)

// WriteToGeneric provides a generic `io.WriterTo` implementation.
// It adapts a type that can marshal to a byte slice to the streaming io.Writer interface.
func WriteToGeneric[T encoding.BinaryMarshaler](v T, w io.Writer) (int64, error) {
	if w == nil {
		return 0, ErrNilIO
	}
	buf, err := v.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	if err != nil {
		return int64(n), err
	}
	if n < len(buf) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

// ReadFromGeneric provides a generic, non-streaming `io.ReaderFrom` implementation.
// WARNING: This is NOT a streaming implementation. It reads the entire `io.Reader`
// into a pooled buffer before unmarshalling, so UnmarshalBinary must copy what it keeps.
func ReadFromGeneric[T encoding.BinaryUnmarshaler](v T, r io.Reader) (int64, error) {
	if r == nil {
		return 0, ErrNilIO
	}
	p := bytesBufPool.Get().(*[]byte)
	buf := bytes.NewBuffer((*p)[:0])

	n, err := buf.ReadFrom(r)
	if err == nil {
		err = v.UnmarshalBinary(buf.Bytes())
	}

	if b := buf.Bytes(); cap(b) <= maxPooledSize {
		*p = b[:0]
		bytesBufPool.Put(p)
	}
	return n, err
}

// MarshalToGeneric provides a fallback implementation for the MarshalTo method.
func MarshalToGeneric[T interface {
	Size() int
	encoding.BinaryMarshaler
}](v T, p []byte) (int, error) {
	size := v.Size()
	if len(p) < size {
		return 0, io.ErrShortBuffer
	}
	buf, err := v.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return copy(p, buf), nil
}
