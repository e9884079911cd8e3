package clone

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// Realm is an isolated execution context that may hold views over array
// buffers. The codec only needs to find those views to neuter them when a
// buffer is transferred away.
type Realm interface {
	Name() string
	// Track records a view created in this realm.
	Track(v *ArrayBufferView)
	// ViewsOf returns the views this realm holds over buf.
	ViewsOf(buf *ArrayBuffer) []*ArrayBufferView
}

// viewSet is the list of views over one buffer.
type viewSet struct {
	mu    sync.Mutex
	views []*ArrayBufferView
}

type realm struct {
	name  string
	views *xsync.Map[*ArrayBuffer, *viewSet]
}

// NewRealm returns a Realm that indexes its views by backing buffer.
// It is safe for concurrent use.
func NewRealm(name string) Realm {
	return &realm{name: name, views: xsync.NewMap[*ArrayBuffer, *viewSet]()}
}

func (r *realm) Name() string { return r.name }

func (r *realm) Track(v *ArrayBufferView) {
	if v == nil || v.buffer == nil {
		return
	}
	set, _ := r.views.LoadOrStore(v.buffer, &viewSet{})
	set.mu.Lock()
	set.views = append(set.views, v)
	set.mu.Unlock()
}

func (r *realm) ViewsOf(buf *ArrayBuffer) []*ArrayBufferView {
	set, ok := r.views.Load(buf)
	if !ok {
		return nil
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return append([]*ArrayBufferView(nil), set.views...)
}

// forget drops the index entry of a buffer whose views were all neutered.
func (r *realm) forget(buf *ArrayBuffer) {
	r.views.Delete(buf)
}

// RealmRegistry enumerates the realms that a transfer must reach.
// It is safe for concurrent use.
type RealmRegistry struct {
	realms *xsync.Map[string, Realm]
}

// NewRealmRegistry returns an empty registry.
func NewRealmRegistry() *RealmRegistry {
	return &RealmRegistry{realms: xsync.NewMap[string, Realm]()}
}

// Register adds r, replacing any realm registered under the same name.
func (g *RealmRegistry) Register(r Realm) {
	g.realms.Store(r.Name(), r)
}

// Unregister removes the realm called name.
func (g *RealmRegistry) Unregister(name string) {
	g.realms.Delete(name)
}

// Lookup returns the realm called name.
func (g *RealmRegistry) Lookup(name string) (Realm, bool) {
	return g.realms.Load(name)
}

// Len returns the number of registered realms.
func (g *RealmRegistry) Len() int { return g.realms.Size() }

// Range calls fn for every realm until fn returns false.
func (g *RealmRegistry) Range(fn func(Realm) bool) {
	g.realms.Range(func(_ string, r Realm) bool { return fn(r) })
}
