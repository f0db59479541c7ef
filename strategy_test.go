package zipgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitIntervals__MinimumLengthRespected(t *testing.T) {
	cases := []struct {
		name      string
		values    []uint64
		minLength uint64
		intervals []interval
		residuals []uint64
	}{
		{
			// A run of four consecutive ids must become one interval and
			// the outlier a residual, never five independent gaps.
			name:      "RunPlusOutlier",
			values:    []uint64{5, 6, 7, 8, 20},
			minLength: 2,
			intervals: []interval{{start: 5, length: 4}},
			residuals: []uint64{20},
		},
		{
			name:      "RunTooShort",
			values:    []uint64{5, 6, 20},
			minLength: 4,
			intervals: nil,
			residuals: []uint64{5, 6, 20},
		},
		{
			name:      "TwoRuns",
			values:    []uint64{1, 2, 3, 10, 11, 12, 30},
			minLength: 3,
			intervals: []interval{{start: 1, length: 3}, {start: 10, length: 3}},
			residuals: []uint64{30},
		},
		{
			name:      "AllOneRun",
			values:    []uint64{4, 5, 6, 7},
			minLength: 2,
			intervals: []interval{{start: 4, length: 4}},
			residuals: nil,
		},
		{
			name:      "Singleton",
			values:    []uint64{42},
			minLength: 1,
			intervals: []interval{{start: 42, length: 1}},
			residuals: nil,
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			intervals, residuals := splitIntervals(test.values, test.minLength)
			assert.Equal(t, test.intervals, intervals)
			assert.Equal(t, test.residuals, residuals)
		})
	}
}

func TestBuildCopyBlocks__MaskShapes(t *testing.T) {
	ref := []uint64{10, 20, 30, 40, 50}
	cases := []struct {
		name   string
		succ   []uint64
		blocks []uint64
		copied []uint64
	}{
		{
			// Copying everything needs no blocks at all.
			name:   "WholeList",
			succ:   []uint64{10, 20, 30, 40, 50},
			blocks: []uint64{},
			copied: []uint64{10, 20, 30, 40, 50},
		},
		{
			// The first run is an inclusion run and may be empty.
			name:   "SkipHead",
			succ:   []uint64{20, 30, 40, 50},
			blocks: []uint64{0, 1},
			copied: []uint64{20, 30, 40, 50},
		},
		{
			// An even block count means the tail is copied implicitly.
			name:   "HoleInMiddle",
			succ:   []uint64{10, 40, 50},
			blocks: []uint64{1, 2},
			copied: []uint64{10, 40, 50},
		},
		{
			// An odd block count leaves the tail excluded.
			name:   "HeadOnly",
			succ:   []uint64{10, 20},
			blocks: []uint64{2},
			copied: []uint64{10, 20},
		},
		{
			name:   "NothingShared",
			succ:   []uint64{11, 21},
			blocks: []uint64{0},
			copied: nil,
		},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			blocks, copied := buildCopyBlocks(test.succ, ref)
			assert.Equal(t, test.blocks, blocks)
			assert.Equal(t, test.copied, copied)
		})
	}
}

// A node whose successor list is identical to its predecessor's must be
// encoded as a pure reference copy: no blocks, no intervals, no residuals.
func TestStrategySelector__Choose__IdenticalListCopies(t *testing.T) {
	cfg := DefaultConfig()
	selector := newStrategySelector(&cfg)
	window := newReferenceWindow(cfg.WindowSize)
	window.push([]uint64{1, 2, 3}, 0)

	strat := selector.choose(1, []uint64{1, 2, 3}, window, 1)
	require.EqualValues(t, 1, strat.refDistance)
	assert.Empty(t, strat.blocks)
	assert.Equal(t, []uint64{1, 2, 3}, strat.copied)
	assert.Empty(t, strat.intervals)
	assert.Empty(t, strat.residuals)
	assert.EqualValues(t, 1, strat.chainDepth)
}

func TestStrategySelector__Choose__ZeroWindowNeverReferences(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 0
	cfg.MaxRefChain = 0
	selector := newStrategySelector(&cfg)
	window := newReferenceWindow(0)

	for node := uint64(1); node < 10; node++ {
		window.push([]uint64{1, 2, 3}, 0)
		strat := selector.choose(node, []uint64{1, 2, 3}, window, 0)
		assert.EqualValues(t, 0, strat.refDistance, "node %d", node)
	}
}

func TestStrategySelector__Choose__ChainDepthBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRefChain = 1
	selector := newStrategySelector(&cfg)
	window := newReferenceWindow(cfg.WindowSize)

	// The entry at distance 1 is already at the chain bound, so the node
	// must either reference deeper entries or stand alone.
	window.push([]uint64{1, 2, 3}, 1)
	strat := selector.choose(5, []uint64{1, 2, 3}, window, 1)
	assert.EqualValues(t, 0, strat.refDistance,
		"a reference would create a chain of depth 2 against a bound of 1")

	// With the same list at depth 0 the copy is allowed again.
	window.reset()
	window.push([]uint64{1, 2, 3}, 0)
	strat = selector.choose(5, []uint64{1, 2, 3}, window, 1)
	assert.EqualValues(t, 1, strat.refDistance)
	assert.EqualValues(t, 1, strat.chainDepth)
}

func TestStrategySelector__Choose__CostPrefersCheaperDistance(t *testing.T) {
	cfg := DefaultConfig()
	selector := newStrategySelector(&cfg)
	window := newReferenceWindow(cfg.WindowSize)

	// Distance 2 holds a perfect match, distance 1 a useless list.
	window.push([]uint64{100, 200, 300}, 0)
	window.push([]uint64{7, 8, 9, 1000}, 0)

	strat := selector.choose(10, []uint64{100, 200, 300}, window, 2)
	assert.EqualValues(t, 2, strat.refDistance)
	assert.Equal(t, []uint64{100, 200, 300}, strat.copied)
}
