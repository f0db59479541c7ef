package graphio

import (
	"io"

	"github.com/gocarina/gocsv"

	zipgraph "github.com/dargueta/zipgraph"
)

// Arc is one edge-list row for CSV interchange.
type Arc struct {
	Source uint64 `csv:"source"`
	Target uint64 `csv:"target"`
}

// ReadCSV parses a CSV edge list with a "source,target" header.
func ReadCSV(r io.Reader) (*AdjacencyGraph, error) {
	var rows []Arc
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, err
	}
	graph := NewAdjacencyGraph(0)
	for _, row := range rows {
		graph.AddArc(row.Source, row.Target)
	}
	return graph, nil
}

// WriteCSV renders any graph source as a CSV edge list.
func WriteCSV(w io.Writer, g zipgraph.GraphSource) error {
	rows := make([]Arc, 0)
	for node := uint64(0); node < g.NodeCount(); node++ {
		succ, err := g.Successors(node)
		if err != nil {
			return err
		}
		for _, dst := range succ {
			rows = append(rows, Arc{Source: node, Target: dst})
		}
	}
	return gocsv.Marshal(&rows, w)
}
