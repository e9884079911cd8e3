package clone

import (
	"iter"
	"math"
	"slices"
)

// Array is a sparse-capable array. Length is independent of the number of
// present elements; missing indexes are holes. Named, non-index properties
// are kept in Props.
type Array struct {
	Length uint32
	Props  Properties

	indexes []uint32 // present indexes, ascending
	values  map[uint32]Value
}

// NewArray returns an empty array of the given length.
func NewArray(length uint32) *Array {
	return &Array{Length: length}
}

// ArrayOf returns a dense array holding vs.
func ArrayOf(vs ...Value) *Array {
	a := &Array{
		Length:  uint32(len(vs)),
		indexes: make([]uint32, len(vs)),
		values:  make(map[uint32]Value, len(vs)),
	}
	for i, v := range vs {
		a.indexes[i] = uint32(i)
		a.values[uint32(i)] = v
	}
	return a
}

func (*Array) Kind() Kind { return KindArray }
func (*Array) isValue()   {}

// Set stores v at index i, extending Length when needed.
func (a *Array) Set(i uint32, v Value) {
	if a.values == nil {
		a.values = make(map[uint32]Value)
	}
	if _, ok := a.values[i]; !ok {
		// appends in ascending order are the common case
		if n := len(a.indexes); n == 0 || a.indexes[n-1] < i {
			a.indexes = append(a.indexes, i)
		} else {
			pos, _ := slices.BinarySearch(a.indexes, i)
			a.indexes = slices.Insert(a.indexes, pos, i)
		}
	}
	a.values[i] = v
	if i >= a.Length && i != math.MaxUint32 {
		a.Length = i + 1
	}
}

// Get returns the element at i; ok is false for a hole.
func (a *Array) Get(i uint32) (Value, bool) {
	v, ok := a.values[i]
	return v, ok
}

// Delete turns index i into a hole. Length is unchanged.
func (a *Array) Delete(i uint32) {
	if _, ok := a.values[i]; !ok {
		return
	}
	delete(a.values, i)
	if pos, found := slices.BinarySearch(a.indexes, i); found {
		a.indexes = slices.Delete(a.indexes, pos, pos+1)
	}
}

// Count returns the number of present elements.
func (a *Array) Count() int { return len(a.indexes) }

// entry returns the n-th present element in index order.
func (a *Array) entry(n int) (uint32, Value, bool) {
	if n < 0 || n >= len(a.indexes) {
		return 0, nil, false
	}
	i := a.indexes[n]
	return i, a.values[i], true
}

// Elements iterates over present elements in ascending index order.
func (a *Array) Elements() iter.Seq2[uint32, Value] {
	return func(yield func(uint32, Value) bool) {
		for _, i := range a.indexes {
			if !yield(i, a.values[i]) {
				return
			}
		}
	}
}
