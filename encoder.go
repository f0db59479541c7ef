package zipgraph

import (
	"fmt"

	"github.com/dargueta/zipgraph/bitstream"
)

// successorEncoder serializes one node record at a time, in node order,
// into a bit stream. It owns the reference window and strategy selector
// for its pass; a parallel build runs one encoder per chunk.
type successorEncoder struct {
	cfg      *Config
	writer   *bitstream.Writer
	selector *strategySelector
	window   *referenceWindow
	// nodeCount bounds the successor ids accepted by the encoder.
	nodeCount uint64
	// encoded counts records emitted so far in this stream; it also caps
	// reference distances so a chunk never reaches before its own start.
	encoded uint64
	// offsets records the starting bit position of every record, plus the
	// final total length once the caller appends writer.Len().
	offsets []uint64
	arcs    uint64
}

func newSuccessorEncoder(cfg *Config, nodeCount, expectedNodes uint64) *successorEncoder {
	return &successorEncoder{
		cfg:       cfg,
		writer:    bitstream.NewWriter(),
		selector:  newStrategySelector(cfg),
		window:    newReferenceWindow(cfg.WindowSize),
		nodeCount: nodeCount,
		offsets:   make([]uint64, 0, expectedNodes+1),
	}
}

// encodeNode appends the record for the node with the given absolute id.
// succ must be strictly ascending with every id below the node count;
// violations surface as ErrIntegrity and abort the compression job.
func (e *successorEncoder) encodeNode(node uint64, succ []uint64) error {
	if err := e.checkInput(node, succ); err != nil {
		return err
	}

	e.offsets = append(e.offsets, e.writer.Len())
	k := e.cfg.zetaK()

	e.cfg.OutdegreeCode.Write(e.writer, k, uint64(len(succ)))
	if len(succ) == 0 {
		e.window.push(nil, 0)
		e.encoded++
		return nil
	}

	maxDist := e.encoded
	if maxDist > uint64(e.cfg.WindowSize) {
		maxDist = uint64(e.cfg.WindowSize)
	}
	strat := e.selector.choose(node, succ, e.window, uint32(maxDist))
	e.writeStrategy(node, strat)

	// The window keeps its own copy; callers may reuse succ.
	kept := append([]uint64(nil), succ...)
	e.window.push(kept, strat.chainDepth)
	e.encoded++
	e.arcs += uint64(len(succ))
	return nil
}

func (e *successorEncoder) writeStrategy(node uint64, strat strategy) {
	cfg := e.cfg
	k := cfg.zetaK()
	w := e.writer

	cfg.ReferenceCode.Write(w, k, uint64(strat.refDistance))
	if strat.refDistance > 0 {
		cfg.BlockCountCode.Write(w, k, uint64(len(strat.blocks)))
		for j, run := range strat.blocks {
			if j == 0 {
				cfg.BlockLengthCode.Write(w, k, run)
			} else {
				cfg.BlockLengthCode.Write(w, k, run-1)
			}
		}
	}

	if len(strat.intervals) == 0 && len(strat.residuals) == 0 {
		return
	}
	cfg.IntervalCountCode.Write(w, k, uint64(len(strat.intervals)))
	prevEnd := uint64(0)
	for j, iv := range strat.intervals {
		if j == 0 {
			cfg.IntervalStartCode.Write(w, k, bitstream.ToNat(int64(iv.start)-int64(node)))
		} else {
			cfg.IntervalStartCode.Write(w, k, iv.start-prevEnd-1)
		}
		cfg.IntervalLengthCode.Write(w, k, iv.length-uint64(cfg.MinIntervalLength))
		prevEnd = iv.start + iv.length
	}
	prev := uint64(0)
	for j, res := range strat.residuals {
		if j == 0 {
			cfg.ResidualCode.Write(w, k, bitstream.ToNat(int64(res)-int64(node)))
		} else {
			cfg.ResidualCode.Write(w, k, res-prev-1)
		}
		prev = res
	}
}

func (e *successorEncoder) checkInput(node uint64, succ []uint64) error {
	for i, v := range succ {
		if v >= e.nodeCount {
			return ErrIntegrity.WithMessage(fmt.Sprintf(
				"node %d: successor %d is outside [0, %d)", node, v, e.nodeCount))
		}
		if i > 0 && v <= succ[i-1] {
			return ErrIntegrity.WithMessage(fmt.Sprintf(
				"node %d: successors not strictly ascending at position %d", node, i))
		}
	}
	return nil
}

// finish closes the stream and returns the segment: its bytes, exact bit
// length, per-node offsets (with the terminating total), and arc count.
func (e *successorEncoder) finish() encodedSegment {
	e.offsets = append(e.offsets, e.writer.Len())
	return encodedSegment{
		bits:    e.writer.Bytes(),
		bitLen:  e.writer.Len(),
		offsets: e.offsets,
		arcs:    e.arcs,
	}
}

// encodedSegment is the self-contained output of one encode pass, bit
// position 0 being the first record's start.
type encodedSegment struct {
	bits    []byte
	bitLen  uint64
	offsets []uint64
	arcs    uint64
}
