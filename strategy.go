package zipgraph

import (
	bitmap "github.com/boljen/go-bitmap"

	"github.com/dargueta/zipgraph/bitstream"
)

// interval is a maximal run of consecutive successor ids, stored as its
// first member and its length.
type interval struct {
	start  uint64
	length uint64
}

// strategy is a fully specified encoding decision for one node: the chosen
// reference distance and the partition of the successor set into copied,
// interval-covered, and residual subsets. The encoder serializes it
// without further choices.
type strategy struct {
	refDistance uint32
	chainDepth  uint32
	// blocks holds the raw alternating run lengths of the inclusion mask
	// over the referenced list. blocks[0] may be zero; later entries are
	// always positive. Empty with refDistance 0 or a whole-list copy.
	blocks    []uint64
	copied    []uint64
	intervals []interval
	residuals []uint64
	// bitCost is the exact record size in bits, outdegree field included.
	bitCost uint64
}

// strategySelector picks, for each node, the reference distance and
// successor partition with the smallest estimated record. The estimate
// uses the exact code lengths, so "estimated" only means the selector is
// greedy per node, not globally optimal.
type strategySelector struct {
	cfg *Config
}

func newStrategySelector(cfg *Config) *strategySelector {
	return &strategySelector{cfg: cfg}
}

// choose evaluates every admissible reference distance for the node and
// returns the cheapest strategy. maxDist caps the candidate distances; the
// caller passes min(W, nodes processed in this stream) so that chunked
// compression never references across a chunk boundary. succ must be
// strictly ascending and non-empty.
func (s *strategySelector) choose(node uint64, succ []uint64, win *referenceWindow, maxDist uint32) strategy {
	best := s.buildCandidate(node, succ, 0, nil)
	best.chainDepth = 0

	if s.cfg.MaxRefChain == 0 {
		return best
	}
	if windowCap := uint32(win.capacity()); maxDist > windowCap {
		maxDist = windowCap
	}
	for dist := uint32(1); dist <= maxDist; dist++ {
		ref, ok := win.lookup(dist)
		if !ok || len(ref) == 0 {
			continue
		}
		depth, _ := win.chainDepth(dist)
		if depth+1 > s.cfg.MaxRefChain {
			continue
		}
		candidate := s.buildCandidate(node, succ, dist, ref)
		if candidate.bitCost < best.bitCost {
			candidate.chainDepth = depth + 1
			best = candidate
		}
	}
	return best
}

// buildCandidate produces the complete strategy for one reference
// distance, including its exact bit cost. dist 0 means no reference.
func (s *strategySelector) buildCandidate(node uint64, succ []uint64, dist uint32, ref []uint64) strategy {
	cfg := s.cfg
	k := cfg.zetaK()

	cand := strategy{refDistance: dist}
	cost := cfg.OutdegreeCode.Len(k, uint64(len(succ))) +
		cfg.ReferenceCode.Len(k, uint64(dist))

	remainder := succ
	if dist > 0 {
		cand.blocks, cand.copied = buildCopyBlocks(succ, ref)
		cost += cfg.BlockCountCode.Len(k, uint64(len(cand.blocks)))
		for j, run := range cand.blocks {
			if j == 0 {
				cost += cfg.BlockLengthCode.Len(k, run)
			} else {
				cost += cfg.BlockLengthCode.Len(k, run-1)
			}
		}
		remainder = subtractSorted(succ, cand.copied)
	}

	if len(remainder) > 0 {
		cand.intervals, cand.residuals = splitIntervals(remainder, uint64(cfg.MinIntervalLength))
		cost += cfg.IntervalCountCode.Len(k, uint64(len(cand.intervals)))
		prevEnd := uint64(0)
		for j, iv := range cand.intervals {
			if j == 0 {
				cost += cfg.IntervalStartCode.Len(k, bitstream.ToNat(int64(iv.start)-int64(node)))
			} else {
				cost += cfg.IntervalStartCode.Len(k, iv.start-prevEnd-1)
			}
			cost += cfg.IntervalLengthCode.Len(k, iv.length-uint64(cfg.MinIntervalLength))
			prevEnd = iv.start + iv.length
		}
		prev := uint64(0)
		for j, res := range cand.residuals {
			if j == 0 {
				cost += cfg.ResidualCode.Len(k, bitstream.ToNat(int64(res)-int64(node)))
			} else {
				cost += cfg.ResidualCode.Len(k, res-prev-1)
			}
			prev = res
		}
	}

	cand.bitCost = cost
	return cand
}

// buildCopyBlocks computes the run-length inclusion mask of ref against
// succ. The returned blocks are the alternating run lengths with the final
// run dropped: the decoder infers the tail's disposition from the block
// count's parity. copied is the ascending intersection.
func buildCopyBlocks(succ, ref []uint64) (blocks, copied []uint64) {
	mask := bitmap.New(len(ref))
	si := 0
	for ri, v := range ref {
		for si < len(succ) && succ[si] < v {
			si++
		}
		if si < len(succ) && succ[si] == v {
			mask.Set(ri, true)
			copied = append(copied, v)
			si++
		}
	}

	// Collapse the mask into alternating runs, the first counting included
	// positions and possibly empty.
	included := true
	runLength := uint64(0)
	for ri := 0; ri < len(ref); ri++ {
		if mask.Get(ri) == included {
			runLength++
			continue
		}
		blocks = append(blocks, runLength)
		included = !included
		runLength = 1
	}
	blocks = append(blocks, runLength)

	// The final run is implicit. With it dropped, the block count is even
	// exactly when the tail of the referenced list is an included run.
	return blocks[:len(blocks)-1], copied
}

// subtractSorted returns the elements of a not present in b. Both inputs
// are strictly ascending and b is a subset of a.
func subtractSorted(a, b []uint64) []uint64 {
	if len(b) == 0 {
		return a
	}
	out := make([]uint64, 0, len(a)-len(b))
	bi := 0
	for _, v := range a {
		if bi < len(b) && b[bi] == v {
			bi++
			continue
		}
		out = append(out, v)
	}
	return out
}

// splitIntervals extracts maximal runs of consecutive ids of length at
// least minLength as intervals; everything else becomes a residual.
func splitIntervals(values []uint64, minLength uint64) (intervals []interval, residuals []uint64) {
	runStart := 0
	flush := func(end int) {
		runLen := uint64(end - runStart)
		if runLen >= minLength {
			intervals = append(intervals, interval{start: values[runStart], length: runLen})
		} else {
			residuals = append(residuals, values[runStart:end]...)
		}
	}
	for i := 1; i < len(values); i++ {
		if values[i] != values[i-1]+1 {
			flush(i)
			runStart = i
		}
	}
	flush(len(values))
	return intervals, residuals
}
