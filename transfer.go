package clone

import (
	"fmt"

	"go.uber.org/zap"
)

// Transfer lists the values whose ownership moves with a payload instead of
// being copied into it.
type Transfer struct {
	// Ports are referenced by position; every MessagePort in the graph must be listed.
	Ports []*MessagePort
	// Buffers are detached from their realm once serialization succeeds.
	Buffers []*ArrayBuffer
}

// viewForgetter is implemented by realms that keep an index of their views.
type viewForgetter interface {
	forget(buf *ArrayBuffer)
}

// transferArrayBuffers moves the storage of every distinct buffer into the
// returned table, indexed by position in buffers, and neuters every view that
// a realm of the registry holds over them. Nothing is detached unless all
// buffers are live.
func transferArrayBuffers(buffers []*ArrayBuffer, registry *RealmRegistry, log *zap.Logger) ([][]byte, error) {
	if len(buffers) == 0 {
		return nil, nil
	}
	for i, b := range buffers {
		if b == nil {
			return nil, newError(DataCloneError, fmt.Errorf("nil array buffer at transfer position %d", i))
		}
		if b.IsNeutered() {
			return nil, newError(ValidationError, fmt.Errorf("%w: transfer position %d", ErrNeutered, i))
		}
	}

	contents := make([][]byte, len(buffers))
	visited := make(map[*ArrayBuffer]struct{}, len(buffers))
	var detached, neutered int
	for i, b := range buffers {
		if _, ok := visited[b]; ok {
			continue
		}
		visited[b] = struct{}{}

		data, err := b.detach()
		if err != nil {
			// lost a race with a concurrent transfer of the same buffer
			return nil, newError(ValidationError, fmt.Errorf("%w: transfer position %d", err, i))
		}
		contents[i] = data
		detached++

		if registry == nil {
			continue
		}
		registry.Range(func(r Realm) bool {
			for _, v := range r.ViewsOf(b) {
				if v.neuter() {
					neutered++
				}
			}
			if f, ok := r.(viewForgetter); ok {
				f.forget(b)
			}
			return true
		})
	}

	log.Debug("transferred array buffers",
		zap.Int("buffers", detached),
		zap.Int("views_neutered", neutered),
	)
	return contents, nil
}
