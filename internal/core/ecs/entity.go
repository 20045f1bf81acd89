// Package ecs is a small entity-component store: generational ids, typed
// sparse-set component stores and a deferred destroy queue.
package ecs

// EntityID packs a 32-bit slot index (low bits) and a 32-bit generation (high
// bits). Generations start at 1, so the zero id never names a live entity.
type EntityID uint64

func makeID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// Pool allocates entity ids and recycles slots. A destroyed slot's generation
// is bumped so stale ids stop resolving.
type Pool struct {
	generations []uint32
	free        []uint32
	live        int
}

func NewPool() *Pool {
	return &Pool{
		generations: make([]uint32, 0, 64),
		free:        make([]uint32, 0, 16),
	}
}

func (p *Pool) Create() EntityID {
	p.live++
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return makeID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 1)
	return makeID(idx, 1)
}

func (p *Pool) Alive(id EntityID) bool {
	idx := id.Index()
	return int(idx) < len(p.generations) && p.generations[idx] == id.Generation()
}

// Destroy frees id. Stale or unknown ids are ignored.
func (p *Pool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1 // wrapped; the slot is reused with a fresh generation
	}
	p.free = append(p.free, idx)
	p.live--
	return true
}

// Len is the number of live entities.
func (p *Pool) Len() int { return p.live }
