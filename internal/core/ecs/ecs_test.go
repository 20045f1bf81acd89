package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolGenerations(t *testing.T) {
	p := NewPool()
	a := p.Create()
	assert.False(t, a.IsZero(), "first id is never zero")
	assert.True(t, p.Alive(a))

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "stale id")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index(), "slot recycled")
	assert.NotEqual(t, a, b)
	assert.Equal(t, 1, p.Len())
}

func TestStoreSwapRemove(t *testing.T) {
	s := NewStore[int]()
	vals := []int{10, 20, 30}
	for i := range vals {
		s.Set(EntityID(i+1), &vals[i])
	}
	s.Remove(1)
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Has(1))

	var order []int
	s.Each(func(_ EntityID, v *int) { order = append(order, *v) })
	assert.Equal(t, []int{30, 20}, order)

	v, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, 30, *v)
}

func TestJoinAndWorldFlush(t *testing.T) {
	w := NewWorld()
	names := NewStore[string]()
	hp := NewStore[int]()
	w.Register(names)
	w.Register(hp)

	a, b := w.Create(), w.Create()
	na, nb := "a", "b"
	ha := 5
	names.Set(a, &na)
	names.Set(b, &nb)
	hp.Set(a, &ha)

	var joined []string
	Join(names, hp, func(_ EntityID, n *string, _ *int) { joined = append(joined, *n) })
	assert.Equal(t, []string{"a"}, joined)

	w.MarkForDestruction(a)
	w.MarkForDestruction(a)
	assert.Equal(t, 1, w.Flush())
	assert.False(t, w.Alive(a))
	assert.Zero(t, hp.Len())
	assert.Equal(t, 1, names.Len())
	assert.Equal(t, 1, w.Len())
}
