package clone

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"
)

// SerializedValue is an encoded payload together with the state that travels
// with it inside the process: the blob URLs it mentions and the storage of
// transferred array buffers.
//
// Only the byte stream is persisted by MarshalBinary and friends; transfer
// contents cannot leave the process.
type SerializedValue struct {
	data []byte

	// BlobURLs lists the URL of every Blob and File in encounter order.
	BlobURLs []string

	mu       sync.Mutex
	contents [][]byte // transferred storage, consumed by the first Deserialize
}

// NewSerializedValue wraps an encoded stream. The slice is copied.
func NewSerializedValue(data []byte) *SerializedValue {
	return &SerializedValue{data: bytes.Clone(data)}
}

// Bytes returns the encoded stream. The caller must not modify it.
func (sv *SerializedValue) Bytes() []byte { return sv.data }

// Size implements Sizer.
func (sv *SerializedValue) Size() int { return len(sv.data) }

// Version returns the format version of the stream header.
func (sv *SerializedValue) Version() (uint32, bool) {
	if len(sv.data) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(sv.data), true
}

// MarshalBinary implements the standard `encoding.BinaryMarshaler` interface.
// Note: This method allocates a new byte slice.
func (sv *SerializedValue) MarshalBinary() ([]byte, error) {
	return bytes.Clone(sv.data), nil
}

// MarshalTo copies the stream into p.
func (sv *SerializedValue) MarshalTo(p []byte) (int, error) {
	return MarshalToGeneric(sv, p)
}

// WriteTo implements `io.WriterTo`.
func (sv *SerializedValue) WriteTo(w io.Writer) (int64, error) {
	return WriteToGeneric(sv, w)
}

// UnmarshalBinary replaces the stream with a copy of data. Blob URLs and
// transfer contents of a previous payload are dropped. The stream itself is
// validated when it is deserialized.
func (sv *SerializedValue) UnmarshalBinary(data []byte) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.data = bytes.Clone(data)
	sv.BlobURLs = nil
	sv.contents = nil
	return nil
}

// ReadFrom implements `io.ReaderFrom`. It reads r to EOF.
func (sv *SerializedValue) ReadFrom(r io.Reader) (int64, error) {
	return ReadFromGeneric(sv, r)
}

// ToString decodes the stream if it holds exactly one non-empty string and
// nothing else. It does not build a value graph.
func (sv *SerializedValue) ToString() (string, bool) {
	r := NewReader(sv.data)
	if version := r.ReadUint32(); r.Err() != nil || version > CurrentVersion {
		return "", false
	}
	if tag := r.ReadTag(); r.Err() != nil || tag != StringTag {
		return "", false
	}
	length := r.ReadUint32()
	if r.Err() != nil || length >= StringPoolTag {
		return "", false
	}
	s := r.ReadUTF16(length)
	if r.Err() != nil || CheckTrailingZeros(r.Rest()) != nil {
		return "", false
	}
	return s, true
}

// HasTransfers reports whether transfer contents are still attached.
func (sv *SerializedValue) HasTransfers() bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	for _, c := range sv.contents {
		if c != nil {
			return true
		}
	}
	return false
}

func (sv *SerializedValue) transferCount() int {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return len(sv.contents)
}

// contentsAt returns the storage of slot i without detaching it.
func (sv *SerializedValue) contentsAt(i int) []byte {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if i < 0 || i >= len(sv.contents) {
		return nil
	}
	return sv.contents[i]
}

// releaseContents detaches the given slots; later calls see them empty.
func (sv *SerializedValue) releaseContents(slots []int) {
	if len(slots) == 0 {
		return
	}
	sv.mu.Lock()
	defer sv.mu.Unlock()
	for _, i := range slots {
		if i >= 0 && i < len(sv.contents) {
			sv.contents[i] = nil
		}
	}
}
