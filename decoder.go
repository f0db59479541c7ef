package zipgraph

import (
	"fmt"

	"github.com/dargueta/zipgraph/bitstream"
)

// Decoder replays a compressed bitstream node by node, yielding each
// node's ascending successor list. It is a forward-only iterator: once a
// node has been consumed there is no rewinding short of creating a fresh
// decoder or using random access. Decoders own their window and cursor
// and must not be shared across goroutines; create one per traversal.
type Decoder struct {
	cfg       Config
	reader    *bitstream.Reader
	nodeCount uint64
	next      uint64
	window    *referenceWindow
	// err poisons the decoder: a record that fails to parse cannot be
	// resynchronized past, so every later call reports the same failure.
	err error
}

func newDecoder(cfg Config, data []byte, bitLen, nodeCount uint64) *Decoder {
	return &Decoder{
		cfg:       cfg,
		reader:    bitstream.NewReaderLen(data, bitLen),
		nodeCount: nodeCount,
		window:    newReferenceWindow(cfg.WindowSize),
	}
}

// NodeCount returns the total number of nodes in the stream.
func (d *Decoder) NodeCount() uint64 {
	return d.nodeCount
}

// HasNext reports whether another node remains.
func (d *Decoder) HasNext() bool {
	return d.err == nil && d.next < d.nodeCount
}

// Pos returns the current bit position of the cursor.
func (d *Decoder) Pos() uint64 {
	return d.reader.Pos()
}

// Next decodes the next node's successor list. After the last node it
// returns (nil, nil); end of sequence is not an error. A parse failure
// returns a FormatError and poisons the decoder.
func (d *Decoder) Next() ([]uint64, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.next >= d.nodeCount {
		return nil, nil
	}

	node := d.next
	succ, err := decodeRecord(d.reader, &d.cfg, node, d.nodeCount, func(dist uint32) ([]uint64, error) {
		if uint64(dist) > node || dist > d.cfg.WindowSize {
			return nil, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d references distance %d beyond the window", node, dist))
		}
		list, ok := d.window.lookup(dist)
		if !ok {
			return nil, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d references distance %d with only %d nodes decoded", node, dist, node))
		}
		return list, nil
	})
	if err != nil {
		d.err = err
		return nil, err
	}

	d.window.push(succ, 0)
	d.next++
	return succ, nil
}

// refResolver maps a reference distance to the referenced node's decoded
// successor list.
type refResolver func(dist uint32) ([]uint64, error)

// decodeRecord parses one node record at the reader's cursor, leaving the
// cursor at the start of the next record. All structural inconsistencies,
// including truncation, surface as FormatError.
func decodeRecord(r *bitstream.Reader, cfg *Config, node, nodeCount uint64, resolve refResolver) ([]uint64, error) {
	k := cfg.zetaK()

	degree, err := cfg.OutdegreeCode.Read(r, k)
	if err != nil {
		return nil, ErrFormat.Wrap(err)
	}
	if degree == 0 {
		return nil, nil
	}
	// Successors are distinct ids below the node count, so any larger
	// outdegree is corruption; rejecting it here also keeps the interval
	// and residual decoders from sizing buffers off a bogus claim.
	if degree > nodeCount {
		return nil, ErrFormat.WithMessage(fmt.Sprintf(
			"node %d: outdegree %d exceeds %d nodes", node, degree, nodeCount))
	}

	ref, err := cfg.ReferenceCode.Read(r, k)
	if err != nil {
		return nil, ErrFormat.Wrap(err)
	}

	var copied []uint64
	if ref > 0 {
		if ref > uint64(cfg.WindowSize) {
			return nil, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d: reference distance %d exceeds window %d", node, ref, cfg.WindowSize))
		}
		refList, err := resolve(uint32(ref))
		if err != nil {
			return nil, err
		}
		copied, err = decodeCopyBlocks(r, cfg, node, refList)
		if err != nil {
			return nil, err
		}
	}

	if uint64(len(copied)) > degree {
		return nil, ErrFormat.WithMessage(fmt.Sprintf(
			"node %d: %d copied successors exceed outdegree %d", node, len(copied), degree))
	}
	left := degree - uint64(len(copied))

	var expanded []uint64
	if left > 0 {
		expanded, err = decodeIntervals(r, cfg, node, left)
		if err != nil {
			return nil, err
		}
		left -= uint64(len(expanded))
	}

	var residuals []uint64
	if left > 0 {
		residuals, err = decodeResiduals(r, cfg, node, left)
		if err != nil {
			return nil, err
		}
	}

	succ, err := mergeAscending(copied, expanded, residuals)
	if err != nil {
		return nil, ErrFormat.WithMessage(fmt.Sprintf("node %d: %s", node, err))
	}
	if uint64(len(succ)) != degree {
		return nil, ErrFormat.WithMessage(fmt.Sprintf(
			"node %d: decoded %d successors, outdegree says %d", node, len(succ), degree))
	}
	return succ, nil
}

// decodeCopyBlocks applies the run-length inclusion mask to the referenced
// list. A block count of zero copies the whole list; otherwise runs
// alternate included/excluded starting included, and the tail after the
// last stored run is included exactly when the count is even.
func decodeCopyBlocks(r *bitstream.Reader, cfg *Config, node uint64, refList []uint64) ([]uint64, error) {
	k := cfg.zetaK()

	blockCount, err := cfg.BlockCountCode.Read(r, k)
	if err != nil {
		return nil, ErrFormat.Wrap(err)
	}
	if blockCount == 0 {
		return refList, nil
	}
	if blockCount > uint64(len(refList))+1 {
		return nil, ErrFormat.WithMessage(fmt.Sprintf(
			"node %d: %d copy blocks over a list of %d", node, blockCount, len(refList)))
	}

	var copied []uint64
	idx := uint64(0)
	for j := uint64(0); j < blockCount; j++ {
		run, err := cfg.BlockLengthCode.Read(r, k)
		if err != nil {
			return nil, ErrFormat.Wrap(err)
		}
		if j > 0 {
			run++
		}
		end := idx + run
		if end > uint64(len(refList)) {
			return nil, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d: copy blocks overrun the referenced list", node))
		}
		if j%2 == 0 {
			copied = append(copied, refList[idx:end]...)
		}
		idx = end
	}
	if blockCount%2 == 0 {
		copied = append(copied, refList[idx:]...)
	}
	return copied, nil
}

func decodeIntervals(r *bitstream.Reader, cfg *Config, node uint64, maxValues uint64) ([]uint64, error) {
	k := cfg.zetaK()

	count, err := cfg.IntervalCountCode.Read(r, k)
	if err != nil {
		return nil, ErrFormat.Wrap(err)
	}
	if count == 0 {
		return nil, nil
	}

	var expanded []uint64
	cursor := uint64(0)
	for j := uint64(0); j < count; j++ {
		var start uint64
		if j == 0 {
			rawStart, err := cfg.IntervalStartCode.Read(r, k)
			if err != nil {
				return nil, ErrFormat.Wrap(err)
			}
			signed := int64(node) + bitstream.ToInt(rawStart)
			if signed < 0 {
				return nil, ErrFormat.WithMessage(fmt.Sprintf(
					"node %d: negative interval start", node))
			}
			start = uint64(signed)
		} else {
			gap, err := cfg.IntervalStartCode.Read(r, k)
			if err != nil {
				return nil, ErrFormat.Wrap(err)
			}
			start = cursor + 1 + gap
		}
		rawLen, err := cfg.IntervalLengthCode.Read(r, k)
		if err != nil {
			return nil, ErrFormat.Wrap(err)
		}
		length := rawLen + uint64(cfg.MinIntervalLength)
		if uint64(len(expanded))+length > maxValues {
			return nil, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d: intervals expand past the outdegree", node))
		}
		for v := start; v < start+length; v++ {
			expanded = append(expanded, v)
		}
		cursor = start + length
	}
	return expanded, nil
}

func decodeResiduals(r *bitstream.Reader, cfg *Config, node uint64, count uint64) ([]uint64, error) {
	k := cfg.zetaK()

	residuals := make([]uint64, 0, count)
	prev := uint64(0)
	for j := uint64(0); j < count; j++ {
		raw, err := cfg.ResidualCode.Read(r, k)
		if err != nil {
			return nil, ErrFormat.Wrap(err)
		}
		if j == 0 {
			signed := int64(node) + bitstream.ToInt(raw)
			if signed < 0 {
				return nil, ErrFormat.WithMessage(fmt.Sprintf(
					"node %d: negative residual", node))
			}
			prev = uint64(signed)
		} else {
			prev = prev + 1 + raw
		}
		residuals = append(residuals, prev)
	}
	return residuals, nil
}

// mergeAscending merges up to three ascending, pairwise disjoint lists.
// It reports an error when the inputs overlap or are out of order, which
// on this path can only mean a corrupt record.
func mergeAscending(a, b, c []uint64) ([]uint64, error) {
	out := make([]uint64, 0, len(a)+len(b)+len(c))
	lists := [3][]uint64{a, b, c}
	for {
		best := -1
		var bestValue uint64
		for i, list := range lists {
			if len(list) == 0 {
				continue
			}
			if best < 0 || list[0] < bestValue {
				best = i
				bestValue = list[0]
			}
		}
		if best < 0 {
			return out, nil
		}
		if len(out) > 0 && bestValue <= out[len(out)-1] {
			return nil, fmt.Errorf("successor %d repeats or regresses", bestValue)
		}
		out = append(out, bestValue)
		lists[best] = lists[best][1:]
	}
}
