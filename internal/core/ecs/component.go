package ecs

// Removable lets the World strip an entity from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// Store holds one component type as a sparse set: a dense slice for
// iteration plus an index from entity to dense position. Iteration order is
// insertion order, disturbed only by swap-removal.
type Store[T any] struct {
	ids   []EntityID
	items []*T
	at    map[EntityID]int
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{at: make(map[EntityID]int, 64)}
}

func (s *Store[T]) Set(id EntityID, c *T) {
	if i, ok := s.at[id]; ok {
		s.items[i] = c
		return
	}
	s.at[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.items = append(s.items, c)
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	i, ok := s.at[id]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.at[id]
	return ok
}

func (s *Store[T]) Remove(id EntityID) {
	i, ok := s.at[id]
	if !ok {
		return
	}
	last := len(s.ids) - 1
	if i != last {
		s.ids[i] = s.ids[last]
		s.items[i] = s.items[last]
		s.at[s.ids[i]] = i
	}
	s.ids[last] = 0
	s.items[last] = nil
	s.ids = s.ids[:last]
	s.items = s.items[:last]
	delete(s.at, id)
}

func (s *Store[T]) Len() int { return len(s.ids) }

func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i, id := range s.ids {
		fn(id, s.items[i])
	}
}
