package clone

import (
	"encoding"
	"io"
)

// Sizer is an interface for types that can report their binary size.
// This is useful for pre-allocating buffers before persisting a payload.
type Sizer interface {
	// Size returns the size of the type in bytes when binary encoded.
	Size() int
}

// Marshaler defines the methods for writing a serialized payload out.
type Marshaler interface {
	encoding.BinaryMarshaler // Method: MarshalBinary() ([]byte, error)
	io.WriterTo              // Method: WriteTo(writer io.Writer) (int64, error)

	// MarshalTo copies the payload into a pre-allocated buffer, returning
	// io.ErrShortBuffer if the buffer is too small.
	MarshalTo(buf []byte) (int, error)
}

// Unmarshaler defines the methods for loading a persisted payload.
type Unmarshaler interface {
	encoding.BinaryUnmarshaler // Method: UnmarshalBinary(data []byte) error
	io.ReaderFrom              // Method: ReadFrom(r io.Reader) (int64, error)
}

// Persistable aggregates all binary persistence interfaces.
// *SerializedValue implements it; transfer contents never leave the process
// and are not part of the persisted bytes.
type Persistable interface {
	Sizer
	Marshaler
	Unmarshaler
}

var _ Persistable = (*SerializedValue)(nil)
