package zipgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceWindow__Lookup__DistanceOrder(t *testing.T) {
	w := newReferenceWindow(3)
	w.push([]uint64{1}, 0)
	w.push([]uint64{2}, 1)
	w.push([]uint64{3}, 2)

	for dist, expected := range map[uint32][]uint64{
		1: {3},
		2: {2},
		3: {1},
	} {
		list, ok := w.lookup(dist)
		require.True(t, ok, "distance %d", dist)
		assert.Equal(t, expected, list, "distance %d", dist)
		depth, ok := w.chainDepth(dist)
		require.True(t, ok)
		assert.EqualValues(t, 3-dist, depth)
	}
}

func TestReferenceWindow__Push__EvictsOldest(t *testing.T) {
	w := newReferenceWindow(2)
	w.push([]uint64{1}, 0)
	w.push([]uint64{2}, 0)
	w.push([]uint64{3}, 0)

	list, ok := w.lookup(1)
	require.True(t, ok)
	assert.Equal(t, []uint64{3}, list)
	list, ok = w.lookup(2)
	require.True(t, ok)
	assert.Equal(t, []uint64{2}, list)
	_, ok = w.lookup(3)
	assert.False(t, ok, "the oldest list must have been evicted")
}

func TestReferenceWindow__Lookup__BeyondFillFails(t *testing.T) {
	w := newReferenceWindow(4)
	w.push([]uint64{1}, 0)
	_, ok := w.lookup(2)
	assert.False(t, ok)
	_, ok = w.lookup(0)
	assert.False(t, ok, "distance 0 is never resolvable")
}

func TestReferenceWindow__ZeroCapacity__AcceptsPushes(t *testing.T) {
	w := newReferenceWindow(0)
	w.push([]uint64{1}, 0)
	_, ok := w.lookup(1)
	assert.False(t, ok)
}

func TestReferenceWindow__Reset__Empties(t *testing.T) {
	w := newReferenceWindow(2)
	w.push([]uint64{1}, 0)
	w.push([]uint64{2}, 0)
	w.reset()
	_, ok := w.lookup(1)
	assert.False(t, ok)

	w.push([]uint64{9}, 0)
	list, ok := w.lookup(1)
	require.True(t, ok)
	assert.Equal(t, []uint64{9}, list)
}
