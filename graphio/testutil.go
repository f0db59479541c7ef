package graphio

import "math/rand"

// RandomGraph builds a graph with uniformly random successor sets, around
// meanDegree arcs per node. Useful as an adversarial fixture: uniform
// targets defeat reference and interval compression almost entirely.
func RandomGraph(rng *rand.Rand, nodeCount uint64, meanDegree int) *AdjacencyGraph {
	graph := NewAdjacencyGraph(nodeCount)
	if nodeCount == 0 {
		return graph
	}
	for node := uint64(0); node < nodeCount; node++ {
		degree := rng.Intn(meanDegree*2 + 1)
		for j := 0; j < degree; j++ {
			graph.AddArc(node, uint64(rng.Int63n(int64(nodeCount))))
		}
	}
	return graph
}

// LocalRandomGraph builds a graph whose successor lists resemble their
// neighbors': targets cluster near the source and consecutive nodes share
// most of their lists. This is the regime the codec is designed for, so
// compression-ratio tests use it.
func LocalRandomGraph(rng *rand.Rand, nodeCount uint64, meanDegree int) *AdjacencyGraph {
	graph := NewAdjacencyGraph(nodeCount)
	if nodeCount == 0 {
		return graph
	}
	var shared []uint64
	for node := uint64(0); node < nodeCount; node++ {
		// Refresh the shared base list occasionally; nodes in between
		// copy it with small mutations.
		if node%4 == 0 || len(shared) == 0 {
			shared = shared[:0]
			degree := 1 + rng.Intn(meanDegree*2)
			base := int64(node) - int64(rng.Intn(100))
			if base < 0 {
				base = 0
			}
			for j := 0; j < degree; j++ {
				target := base + rng.Int63n(200)
				if target >= int64(nodeCount) {
					target = int64(nodeCount) - 1
				}
				shared = append(shared, uint64(target))
			}
		}
		for _, target := range shared {
			graph.AddArc(node, target)
		}
		if rng.Intn(2) == 0 {
			graph.AddArc(node, uint64(rng.Int63n(int64(nodeCount))))
		}
	}
	return graph
}
