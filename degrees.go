package zipgraph

import (
	"fmt"

	"github.com/dargueta/zipgraph/bitstream"
)

// DegreeScanner walks the bitstream reading only each node's outdegree,
// skipping the successor payloads structurally. It never materializes
// successor lists, so it runs much faster than a full decode; its main
// uses are degree statistics and rebuilding the offset index from a bare
// bitstream. Like Decoder it is forward-only and single-goroutine.
type DegreeScanner struct {
	cfg       Config
	reader    *bitstream.Reader
	nodeCount uint64
	next      uint64
	// degreeRing holds the outdegrees of the last W nodes; resolving a
	// reference only needs the referenced node's degree, not its list.
	degreeRing []uint64
	err        error
}

func newDegreeScanner(cfg Config, data []byte, bitLen, nodeCount uint64) *DegreeScanner {
	return &DegreeScanner{
		cfg:        cfg,
		reader:     bitstream.NewReaderLen(data, bitLen),
		nodeCount:  nodeCount,
		degreeRing: make([]uint64, cfg.WindowSize),
	}
}

// HasNext reports whether another node remains.
func (s *DegreeScanner) HasNext() bool {
	return s.err == nil && s.next < s.nodeCount
}

// Pos returns the bit position of the cursor, which sits at a record
// boundary between calls.
func (s *DegreeScanner) Pos() uint64 {
	return s.reader.Pos()
}

// Next returns the outdegree of the next node and advances past its
// record. After the last node it returns (0, nil).
func (s *DegreeScanner) Next() (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.next >= s.nodeCount {
		return 0, nil
	}
	degree, err := s.skipRecord()
	if err != nil {
		s.err = err
		return 0, err
	}
	if len(s.degreeRing) > 0 {
		s.degreeRing[s.next%uint64(len(s.degreeRing))] = degree
	}
	s.next++
	return degree, nil
}

func (s *DegreeScanner) skipRecord() (uint64, error) {
	cfg := &s.cfg
	k := cfg.zetaK()
	r := s.reader
	node := s.next

	degree, err := cfg.OutdegreeCode.Read(r, k)
	if err != nil {
		return 0, ErrFormat.Wrap(err)
	}
	if degree == 0 {
		return 0, nil
	}
	if degree > s.nodeCount {
		return 0, ErrFormat.WithMessage(fmt.Sprintf(
			"node %d: outdegree %d exceeds %d nodes", node, degree, s.nodeCount))
	}

	ref, err := cfg.ReferenceCode.Read(r, k)
	if err != nil {
		return 0, ErrFormat.Wrap(err)
	}

	left := degree
	if ref > 0 {
		if ref > uint64(cfg.WindowSize) || ref > node {
			return 0, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d: reference distance %d beyond the window", node, ref))
		}
		refDegree := s.degreeRing[(node-ref)%uint64(len(s.degreeRing))]
		copied, err := s.skipCopyBlocks(refDegree)
		if err != nil {
			return 0, err
		}
		if copied > left {
			return 0, ErrFormat.WithMessage(fmt.Sprintf(
				"node %d: copies more than its outdegree", node))
		}
		left -= copied
	}

	if left > 0 {
		expanded, err := s.skipIntervals(left)
		if err != nil {
			return 0, err
		}
		left -= expanded
	}

	for ; left > 0; left-- {
		if _, err := cfg.ResidualCode.Read(r, k); err != nil {
			return 0, ErrFormat.Wrap(err)
		}
	}
	return degree, nil
}

func (s *DegreeScanner) skipCopyBlocks(refDegree uint64) (uint64, error) {
	cfg := &s.cfg
	k := cfg.zetaK()
	r := s.reader

	blockCount, err := cfg.BlockCountCode.Read(r, k)
	if err != nil {
		return 0, ErrFormat.Wrap(err)
	}
	if blockCount == 0 {
		return refDegree, nil
	}

	copied := uint64(0)
	idx := uint64(0)
	for j := uint64(0); j < blockCount; j++ {
		run, err := cfg.BlockLengthCode.Read(r, k)
		if err != nil {
			return 0, ErrFormat.Wrap(err)
		}
		if j > 0 {
			run++
		}
		if j%2 == 0 {
			copied += run
		}
		idx += run
	}
	if idx > refDegree {
		return 0, ErrFormat.WithMessage("copy blocks overrun the referenced list")
	}
	if blockCount%2 == 0 {
		copied += refDegree - idx
	}
	return copied, nil
}

func (s *DegreeScanner) skipIntervals(maxValues uint64) (uint64, error) {
	cfg := &s.cfg
	k := cfg.zetaK()
	r := s.reader

	count, err := cfg.IntervalCountCode.Read(r, k)
	if err != nil {
		return 0, ErrFormat.Wrap(err)
	}
	expanded := uint64(0)
	for j := uint64(0); j < count; j++ {
		if _, err := cfg.IntervalStartCode.Read(r, k); err != nil {
			return 0, ErrFormat.Wrap(err)
		}
		rawLen, err := cfg.IntervalLengthCode.Read(r, k)
		if err != nil {
			return 0, ErrFormat.Wrap(err)
		}
		expanded += rawLen + uint64(cfg.MinIntervalLength)
		if expanded > maxValues {
			return 0, ErrFormat.WithMessage("intervals expand past the outdegree")
		}
	}
	return expanded, nil
}
