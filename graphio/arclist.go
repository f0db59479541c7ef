package graphio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	zipgraph "github.com/dargueta/zipgraph"
)

// ReadArcList parses a plain-text arc list: one "source target" pair per
// line, separated by whitespace. Blank lines and lines starting with '#'
// are skipped. The node count is one past the largest id seen.
func ReadArcList(r io.Reader) (*AdjacencyGraph, error) {
	graph := NewAdjacencyGraph(0)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, found %d", lineNo, len(fields))
		}
		src, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad source id %q", lineNo, fields[0])
		}
		dst, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad target id %q", lineNo, fields[1])
		}
		graph.AddArc(src, dst)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return graph, nil
}

// WriteArcList renders any graph source as a plain-text arc list in
// ascending source and target order.
func WriteArcList(w io.Writer, g zipgraph.GraphSource) error {
	buffered := bufio.NewWriter(w)
	for node := uint64(0); node < g.NodeCount(); node++ {
		succ, err := g.Successors(node)
		if err != nil {
			return err
		}
		for _, dst := range succ {
			if _, err := fmt.Fprintf(buffered, "%d %d\n", node, dst); err != nil {
				return err
			}
		}
	}
	return buffered.Flush()
}
