package clone

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// stringPool dedups string payloads written during one serialize call.
// The first occurrence of a string is its definition; later occurrences
// refer to it by index.
type stringPool struct {
	index map[string]uint32
}

func newStringPool() *stringPool {
	return &stringPool{index: make(map[string]uint32)}
}

func (p *stringPool) size() int { return len(p.index) }

// write emits StringData for s.
func (p *stringPool) write(w *Writer, s string) {
	if w.Err() != nil {
		return
	}
	if i, ok := p.index[s]; ok {
		w.WriteUint32(StringPoolTag)
		w.WritePoolIndex(p.size(), i)
		return
	}
	if !utf8.ValidString(s) {
		w.setError(fmt.Errorf("%w: %q", ErrInvalidString, s))
		return
	}
	units := utf16Units(s)
	length := uint64(len(units))
	if length >= uint64(StringPoolTag) {
		w.setError(fmt.Errorf("%w: %d code units", ErrStringTooLong, length))
		return
	}
	// the literal, length prefix included, must stay addressable by a u32 byte count
	if length > (math.MaxUint32-4)/2 {
		w.setError(fmt.Errorf("%w: %d code units overflow", ErrStringTooLong, length))
		return
	}
	p.index[s] = uint32(p.size())
	w.WriteUint32(uint32(length))
	w.WriteUTF16(units)
}

// readStringPool is the decode-side pool: strings in order of definition.
type readStringPool struct {
	strings []string
}

// read decodes StringData. terminator is true when the length field held
// TerminatorTag instead, which ends an object's property list.
func (p *readStringPool) read(r *Reader) (s string, terminator bool, ok bool) {
	length := r.ReadUint32()
	if r.Err() != nil {
		return "", false, false
	}
	switch length {
	case TerminatorTag:
		return "", true, false
	case StringPoolTag:
		i := r.ReadPoolIndex(len(p.strings))
		if r.Err() != nil {
			return "", false, false
		}
		if int64(i) >= int64(len(p.strings)) {
			r.fail(ErrBadPoolIndex, "string index %d, pool size %d", i, len(p.strings))
			return "", false, false
		}
		return p.strings[i], false, true
	}
	s = r.ReadUTF16(length)
	if r.Err() != nil {
		return "", false, false
	}
	p.strings = append(p.strings, s)
	return s, false, true
}

// readData decodes StringData where a terminator is not allowed.
func (p *readStringPool) readData(r *Reader) (string, bool) {
	s, terminator, ok := p.read(r)
	if terminator {
		r.fail(ErrValidation, "unexpected terminator in string data")
	}
	return s, ok
}
