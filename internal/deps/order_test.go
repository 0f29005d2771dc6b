package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtsl/internal/wire"
)

func TestLoadOrderDAG(t *testing.T) {
	w := NewWalker(newTypes())
	p := wire.NewPayload(nil, []*wire.Record{
		rec(1, "root", 2, 3),
		rec(2, "mesh", 0),
		rec(3, "transform", 2),
	})

	order, err := w.LoadOrder(p)
	require.NoError(t, err)
	assert.Equal(t, []wire.ReferenceID{2, 3, 1}, order.IDs, "dependencies first")
	assert.Empty(t, order.Cycles)
}

func TestLoadOrderTwoCycle(t *testing.T) {
	w := NewWalker(newTypes())
	p := wire.NewPayload(nil, []*wire.Record{
		rec(1, "a", 2),
		rec(2, "b", 1),
		rec(3, "c", 1),
	})

	order, err := w.LoadOrder(p)
	require.NoError(t, err)
	assert.Equal(t, []wire.ReferenceID{1, 2, 3}, order.IDs)
	require.Len(t, order.Cycles, 1)
	assert.Equal(t, []wire.ReferenceID{1, 2}, order.Cycles[0].IDs)
	assert.Equal(t, []wire.ReferenceID{1, 2, 1}, order.Cycles[0].Path)
	assert.Equal(t, "1 → 2 → 1", order.Cycles[0].String())
}

func TestLoadOrderSelfLoopAndDangling(t *testing.T) {
	w := NewWalker(newTypes())
	p := wire.NewPayload(nil, []*wire.Record{
		rec(1, "self", 1, 99),
	})

	order, err := w.LoadOrder(p)
	require.NoError(t, err)
	assert.Equal(t, []wire.ReferenceID{1}, order.IDs)
	require.Len(t, order.Cycles, 1)
	assert.Equal(t, []wire.ReferenceID{1, 1}, order.Cycles[0].Path)
}

func TestLoadOrderIsDeterministic(t *testing.T) {
	w := NewWalker(newTypes())
	p := wire.NewPayload(nil, []*wire.Record{
		rec(1, "a", 3, 2),
		rec(2, "b", 4),
		rec(3, "c", 4),
		rec(4, "d", 0),
		rec(5, "e", 6),
		rec(6, "f", 5),
	})

	first, err := w.LoadOrder(p)
	require.NoError(t, err)
	for range 10 {
		again, err := w.LoadOrder(p)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, []wire.ReferenceID{4, 2, 3, 1, 5, 6}, first.IDs)
}
