package zipgraph

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource adapts in-memory successor lists to the compressor input.
type sliceSource [][]uint64

func (s sliceSource) NodeCount() uint64 {
	return uint64(len(s))
}

func (s sliceSource) Successors(node uint64) ([]uint64, error) {
	return s[node], nil
}

// failingSource reports a plain error for one node.
type failingSource struct {
	sliceSource
	badNode uint64
	err     error
}

func (s failingSource) Successors(node uint64) ([]uint64, error) {
	if node == s.badNode {
		return nil, s.err
	}
	return s.sliceSource.Successors(node)
}

func expectGraphEquals(t *testing.T, graph *CompressedGraph, lists [][]uint64) {
	t.Helper()
	require.EqualValues(t, len(lists), graph.NodeCount())
	iter := graph.Iterator()
	for node, expected := range lists {
		succ, err := iter.Next()
		require.NoError(t, err, "node %d", node)
		if len(expected) == 0 {
			require.Empty(t, succ, "node %d", node)
		} else {
			require.Equal(t, expected, succ, "node %d", node)
		}
	}
	assert.False(t, iter.HasNext())
}

func TestCompress__SequentialDecode__MatchesSource(t *testing.T) {
	rng := rand.New(rand.NewSource(311))
	lists := randomSuccessorLists(rng, 1000, 20)

	graph, err := Compress(context.Background(), sliceSource(lists), DefaultConfig(), nil)
	require.NoError(t, err)
	expectGraphEquals(t, graph, lists)

	var arcs uint64
	for _, succ := range lists {
		arcs += uint64(len(succ))
	}
	assert.Equal(t, arcs, graph.ArcCount())
}

func TestCompress__WorkerCounts__ProduceEquivalentGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	lists := randomSuccessorLists(rng, 800, 15)

	for _, workers := range []int{1, 3, 8, 100} {
		graph, err := Compress(context.Background(), sliceSource(lists), DefaultConfig(),
			&CompressorOptions{Workers: workers})
		require.NoError(t, err, "%d workers", workers)
		expectGraphEquals(t, graph, lists)
	}
}

func TestCompress__EmptyGraph(t *testing.T) {
	graph, err := Compress(context.Background(), sliceSource(nil), DefaultConfig(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, graph.NodeCount())
	assert.EqualValues(t, 0, graph.ArcCount())
	assert.False(t, graph.Iterator().HasNext())
}

func TestCompress__Recompression__PreservesGraph(t *testing.T) {
	rng := rand.New(rand.NewSource(88))
	lists := randomSuccessorLists(rng, 400, 12)

	first, err := Compress(context.Background(), sliceSource(lists), DefaultConfig(), nil)
	require.NoError(t, err)

	// A compressed graph is itself a source, so it can be squeezed again
	// under different settings.
	cfg := DefaultConfig()
	cfg.WindowSize = 2
	cfg.MaxRefChain = 1
	cfg.MinIntervalLength = 8
	second, err := Compress(context.Background(), first, cfg, &CompressorOptions{Workers: 2})
	require.NoError(t, err)
	expectGraphEquals(t, second, lists)
}

func TestCompress__CanceledContext__Aborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lists := make([][]uint64, 3*cancelCheckStride)
	_, err := Compress(ctx, sliceSource(lists), DefaultConfig(), &CompressorOptions{Workers: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompress__SourceFailure__SurfacesAsStorageError(t *testing.T) {
	plain := errors.New("disk on fire")
	source := failingSource{
		sliceSource: make(sliceSource, 10),
		badNode:     4,
		err:         plain,
	}
	_, err := Compress(context.Background(), source, DefaultConfig(), &CompressorOptions{Workers: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, plain)
}

func TestCompress__BadSuccessorList__SurfacesAsIntegrityError(t *testing.T) {
	lists := make([][]uint64, 10)
	lists[7] = []uint64{3, 2}
	_, err := Compress(context.Background(), sliceSource(lists), DefaultConfig(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestCompress__InvalidConfig__Rejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinIntervalLength = 0
	_, err := Compress(context.Background(), sliceSource(make([][]uint64, 5)), cfg, nil)
	assert.ErrorIs(t, err, ErrConfig)
}
