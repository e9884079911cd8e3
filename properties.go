package clone

import "iter"

// Properties is an insertion-ordered bag of named values.
// The zero value is ready to use.
type Properties struct {
	names  []string
	values map[string]Value
}

// Set assigns v to name. A new name is appended; an existing one keeps its position.
// Names must be valid UTF-8 to be serialized.
func (p *Properties) Set(name string, v Value) {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if _, ok := p.values[name]; !ok {
		p.names = append(p.names, name)
	}
	p.values[name] = v
}

// Get returns the value stored under name.
func (p *Properties) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Delete removes name, preserving the order of the remaining properties.
func (p *Properties) Delete(name string) {
	if _, ok := p.values[name]; !ok {
		return
	}
	delete(p.values, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// Len returns the number of properties.
func (p *Properties) Len() int { return len(p.names) }

// Names returns a snapshot of the property names in order.
func (p *Properties) Names() []string {
	if len(p.names) == 0 {
		return nil
	}
	return append([]string(nil), p.names...)
}

// All iterates over the properties in order.
func (p *Properties) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, name := range p.names {
			if !yield(name, p.values[name]) {
				return
			}
		}
	}
}
