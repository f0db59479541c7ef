// Package graphio provides graph sources and conversion between the
// compressed format and plain interchange formats: whitespace arc lists
// and CSV edge lists.
package graphio

import (
	"fmt"
	"sort"
)

// AdjacencyGraph is a mutable in-memory graph used to stage input before
// compression. Arcs may arrive in any order and with duplicates; successor
// lists are sorted and deduplicated lazily when first read.
type AdjacencyGraph struct {
	succ   [][]uint64
	arcs   uint64
	sorted bool
}

// NewAdjacencyGraph creates a graph with the given number of nodes and no
// arcs.
func NewAdjacencyGraph(nodeCount uint64) *AdjacencyGraph {
	return &AdjacencyGraph{succ: make([][]uint64, nodeCount), sorted: true}
}

// NodeCount returns the number of nodes.
func (g *AdjacencyGraph) NodeCount() uint64 {
	return uint64(len(g.succ))
}

// ArcCount returns the number of distinct arcs. It forces normalization.
func (g *AdjacencyGraph) ArcCount() uint64 {
	g.normalize()
	return g.arcs
}

// AddArc records the arc src -> dst, growing the node range as needed.
// Self loops are permitted; duplicates are dropped during normalization.
func (g *AdjacencyGraph) AddArc(src, dst uint64) {
	top := src
	if dst > top {
		top = dst
	}
	for uint64(len(g.succ)) <= top {
		g.succ = append(g.succ, nil)
	}
	g.succ[src] = append(g.succ[src], dst)
	g.sorted = false
}

// Successors returns the ascending, duplicate-free successor list of one
// node. The returned slice is owned by the graph; callers must not mutate
// it.
func (g *AdjacencyGraph) Successors(node uint64) ([]uint64, error) {
	if node >= uint64(len(g.succ)) {
		return nil, fmt.Errorf("node %d out of range [0, %d)", node, len(g.succ))
	}
	g.normalize()
	return g.succ[node], nil
}

func (g *AdjacencyGraph) normalize() {
	if g.sorted {
		return
	}
	g.arcs = 0
	for i, list := range g.succ {
		if len(list) > 1 {
			sort.Slice(list, func(a, b int) bool { return list[a] < list[b] })
			deduped := list[:1]
			for _, v := range list[1:] {
				if v != deduped[len(deduped)-1] {
					deduped = append(deduped, v)
				}
			}
			g.succ[i] = deduped
		}
		g.arcs += uint64(len(g.succ[i]))
	}
	g.sorted = true
}
