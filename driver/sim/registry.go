package sim

import (
	"sync"

	"github.com/dolthub/swiss"
	"github.com/framegpu/gpucore/driver"
	"golang.org/x/exp/slices"
)

type liveEntry struct {
	kind  string
	name  string
	owner uint64
}

// registry tracks every simulated object that has been created and not yet released
type registry struct {
	mutex  sync.Mutex
	nextID uint64
	live   *swiss.Map[uint64, liveEntry]
}

func newRegistry() *registry {
	return &registry{live: swiss.NewMap[uint64, liveEntry](64)}
}

func (r *registry) track(kind string, owner uint64) uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	r.live.Put(r.nextID, liveEntry{kind: kind, owner: owner})
	return r.nextID
}

func (r *registry) setName(id uint64, name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	entry, ok := r.live.Get(id)
	if ok {
		entry.name = name
		r.live.Put(id, entry)
	}
}

// release drops id and reports whether it was live
func (r *registry) release(id uint64) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.live.Has(id) {
		return false
	}
	r.live.Delete(id)
	return true
}

// owned lists the live objects whose owner is owner, in creation order
func (r *registry) owned(owner uint64) []driver.LiveObject {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var ids []uint64
	r.live.Iter(func(id uint64, entry liveEntry) bool {
		if entry.owner == owner {
			ids = append(ids, id)
		}
		return false
	})
	slices.Sort(ids)

	objects := make([]driver.LiveObject, 0, len(ids))
	for _, id := range ids {
		entry, _ := r.live.Get(id)
		objects = append(objects, driver.LiveObject{Kind: entry.kind, Name: entry.name, RefCount: 1})
	}
	return objects
}

func (r *registry) count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.live.Count()
}
