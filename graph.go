package zipgraph

import (
	"fmt"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/dargueta/zipgraph/bitstream"
	"github.com/dargueta/zipgraph/eliasfano"
)

// GraphSource is any graph the compressor can read: node ids are dense in
// [0, NodeCount) and Successors returns a strictly ascending,
// duplicate-free list. A CompressedGraph is itself a GraphSource, so a
// graph can be decoded and recompressed under different settings.
type GraphSource interface {
	NodeCount() uint64
	Successors(node uint64) ([]uint64, error)
}

// CompressedGraph is the immutable result of compression: the record
// bitstream, the offset index, and the configuration that shaped them.
// It is safe for concurrent readers; every traversal owns its private
// cursor and window, and the shared state is never mutated after
// construction.
type CompressedGraph struct {
	cfg       Config
	nodeCount uint64
	arcCount  uint64
	bits      []byte
	bitLen    uint64
	offsets   *eliasfano.Sequence
	// mapped is non-nil when the graph is backed by a memory-mapped file;
	// Close unmaps it.
	mapped mmap.MMap
}

// NodeCount returns the number of nodes.
func (g *CompressedGraph) NodeCount() uint64 {
	return g.nodeCount
}

// ArcCount returns the number of arcs.
func (g *CompressedGraph) ArcCount() uint64 {
	return g.arcCount
}

// Config returns a copy of the configuration the graph was built with.
func (g *CompressedGraph) Config() Config {
	return g.cfg
}

// Iterator returns a fresh sequential decoder positioned at node 0.
func (g *CompressedGraph) Iterator() *Decoder {
	return newDecoder(g.cfg, g.bits, g.bitLen, g.nodeCount)
}

// Degrees returns a fresh degree scanner positioned at node 0.
func (g *CompressedGraph) Degrees() *DegreeScanner {
	return newDegreeScanner(g.cfg, g.bits, g.bitLen, g.nodeCount)
}

// Outdegree returns one node's outdegree by reading only the head of its
// record. It needs no window and costs a single offset lookup.
func (g *CompressedGraph) Outdegree(node uint64) (uint64, error) {
	if node >= g.nodeCount {
		return 0, ErrOutOfRange.WithMessage(fmt.Sprintf(
			"node %d of [0, %d)", node, g.nodeCount))
	}
	degree, _, err := g.readRecordHead(node)
	return degree, err
}

// Successors returns the ascending successor list of one node. Records
// may reference earlier nodes, so a lookup first walks the reference
// chain backward to its deepest dependency and then replays it forward;
// the configured chain bound keeps the cost constant regardless of the
// node's position. The shared graph is never mutated, so concurrent
// calls need no coordination.
func (g *CompressedGraph) Successors(node uint64) ([]uint64, error) {
	if node >= g.nodeCount {
		return nil, ErrOutOfRange.WithMessage(fmt.Sprintf(
			"node %d of [0, %d)", node, g.nodeCount))
	}

	// Collect the chain, deepest dependency last.
	chain := make([]uint64, 1, g.cfg.MaxRefChain+1)
	chain[0] = node
	current := node
	for {
		_, ref, err := g.readRecordHead(current)
		if err != nil {
			return nil, err
		}
		if ref == 0 {
			break
		}
		if ref > current {
			return nil, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d references before node 0", current))
		}
		if uint64(len(chain)) > uint64(g.cfg.MaxRefChain) {
			return nil, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d: reference chain exceeds bound %d", node, g.cfg.MaxRefChain))
		}
		current -= ref
		chain = append(chain, current)
	}

	// Replay forward, keeping only the chain members.
	decoded := make(map[uint64][]uint64, len(chain))
	reader := bitstream.NewReaderLen(g.bits, g.bitLen)
	for i := len(chain) - 1; i >= 0; i-- {
		id := chain[i]
		start, err := g.offsets.Access(id)
		if err != nil {
			return nil, ErrFormat.Wrap(err)
		}
		if err := reader.Seek(start); err != nil {
			return nil, ErrFormat.Wrap(err)
		}
		succ, err := decodeRecord(reader, &g.cfg, id, g.nodeCount, func(dist uint32) ([]uint64, error) {
			list, ok := decoded[id-uint64(dist)]
			if !ok {
				return nil, ErrFormat.WithMessage(fmt.Sprintf(
					"node %d references node %d outside its chain", id, id-uint64(dist)))
			}
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		decoded[id] = succ
	}
	return decoded[node], nil
}

// readRecordHead reads a record's outdegree and reference distance
// without touching the rest of the record.
func (g *CompressedGraph) readRecordHead(node uint64) (degree, ref uint64, err error) {
	start, err := g.offsets.Access(node)
	if err != nil {
		return 0, 0, ErrFormat.Wrap(err)
	}
	reader := bitstream.NewReaderLen(g.bits, g.bitLen)
	if err := reader.Seek(start); err != nil {
		return 0, 0, ErrFormat.Wrap(err)
	}
	k := g.cfg.zetaK()
	degree, err = g.cfg.OutdegreeCode.Read(reader, k)
	if err != nil {
		return 0, 0, ErrFormat.Wrap(err)
	}
	if degree > g.nodeCount {
		return 0, 0, ErrFormat.WithMessage(fmt.Sprintf(
			"node %d: outdegree %d exceeds %d nodes", node, degree, g.nodeCount))
	}
	if degree == 0 {
		return 0, 0, nil
	}
	ref, err = g.cfg.ReferenceCode.Read(reader, k)
	if err != nil {
		return 0, 0, ErrFormat.Wrap(err)
	}
	if ref > uint64(g.cfg.WindowSize) {
		return 0, 0, ErrFormat.WithMessage(fmt.Sprintf(
			"node %d: reference distance %d exceeds window %d", node, ref, g.cfg.WindowSize))
	}
	return degree, ref, nil
}

// RebuildOffsets recomputes the offset index by scanning record lengths.
// It exists for recovery and for validating a stored index; the result
// has nodeCount+1 entries ending in the total bit length.
func (g *CompressedGraph) RebuildOffsets() ([]uint64, error) {
	offsets := make([]uint64, 0, g.nodeCount+1)
	scanner := g.Degrees()
	for scanner.HasNext() {
		offsets = append(offsets, scanner.Pos())
		if _, err := scanner.Next(); err != nil {
			return nil, err
		}
	}
	offsets = append(offsets, scanner.Pos())
	return offsets, nil
}

// Close releases the memory mapping backing an Open-ed graph. It is a
// no-op for graphs built or loaded in memory.
func (g *CompressedGraph) Close() error {
	if g.mapped == nil {
		return nil
	}
	mapped := g.mapped
	g.mapped = nil
	g.bits = nil
	if err := mapped.Unmap(); err != nil {
		return ErrStorage.Wrap(err)
	}
	return nil
}
