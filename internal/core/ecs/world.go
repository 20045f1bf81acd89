package ecs

// World owns the entity pool, the registered stores and a destroy queue that
// the owner flushes once per step.
type World struct {
	pool   *Pool
	stores []Removable
	doomed []EntityID
}

func NewWorld() *World {
	return &World{
		pool:   NewPool(),
		stores: make([]Removable, 0, 4),
		doomed: make([]EntityID, 0, 16),
	}
}

// Register adds a store that Flush and DestroyNow clean up.
func (w *World) Register(s Removable) { w.stores = append(w.stores, s) }

func (w *World) Create() EntityID       { return w.pool.Create() }
func (w *World) Alive(id EntityID) bool { return w.pool.Alive(id) }
func (w *World) Len() int               { return w.pool.Len() }

// MarkForDestruction queues id for the next Flush.
func (w *World) MarkForDestruction(id EntityID) {
	w.doomed = append(w.doomed, id)
}

// DestroyNow strips id from every store and frees it immediately.
func (w *World) DestroyNow(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	for _, s := range w.stores {
		s.Remove(id)
	}
	return w.pool.Destroy(id)
}

// Flush destroys every queued entity and returns how many were still alive.
func (w *World) Flush() int {
	n := 0
	for _, id := range w.doomed {
		if w.DestroyNow(id) {
			n++
		}
	}
	clear(w.doomed)
	w.doomed = w.doomed[:0]
	return n
}
