package clone

// objectPool assigns indexes to composites in the order they are first seen.
// Keys are pointers, so identity and not content decides membership.
type objectPool struct {
	index map[Value]uint32
}

func newObjectPool() *objectPool {
	return &objectPool{index: make(map[Value]uint32)}
}

func (p *objectPool) size() int { return len(p.index) }

// startObject records v and returns true when v has not been seen before.
// Otherwise it writes a back-reference and returns false; the caller must not
// encode v again.
func (p *objectPool) startObject(w *Writer, v Value) bool {
	if p.writeReference(w, v) {
		return false
	}
	p.record(v)
	return true
}

// writeReference writes a back-reference when v is already pooled.
func (p *objectPool) writeReference(w *Writer, v Value) bool {
	i, ok := p.index[v]
	if !ok {
		return false
	}
	w.WriteTag(ObjectReferenceTag)
	w.WritePoolIndex(p.size(), i)
	return true
}

// record appends v without checking for a previous occurrence.
func (p *objectPool) record(v Value) {
	p.index[v] = uint32(p.size())
}

// readObjectPool is the decode side: values in materialization order.
type readObjectPool struct {
	values []Value
}

func (p *readObjectPool) add(v Value) { p.values = append(p.values, v) }

// read resolves an ObjectReferenceTag payload.
func (p *readObjectPool) read(r *Reader) (Value, bool) {
	i := r.ReadPoolIndex(len(p.values))
	if r.Err() != nil {
		return nil, false
	}
	if int64(i) >= int64(len(p.values)) {
		r.fail(ErrBadPoolIndex, "object index %d, pool size %d", i, len(p.values))
		return nil, false
	}
	return p.values[i], true
}
