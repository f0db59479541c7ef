package zipgraph

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/noxer/bytewriter"

	"github.com/dargueta/zipgraph/eliasfano"
)

// fileMagic opens every persisted graph; the trailing digit is the format
// revision.
var fileMagic = [4]byte{'Z', 'G', 'R', '1'}

// fileHeader is the fixed-size portion of the persisted layout, written
// little-endian immediately after the magic.
type fileHeader struct {
	NodeCount         uint64
	ArcCount          uint64
	WindowSize        uint32
	MaxRefChain       uint32
	MinIntervalLength uint32
	Codes             [8]uint8
	ZetaK             uint8
	Reserved          [3]uint8
}

func (g *CompressedGraph) header() fileHeader {
	header := fileHeader{
		NodeCount:         g.nodeCount,
		ArcCount:          g.arcCount,
		WindowSize:        g.cfg.WindowSize,
		MaxRefChain:       g.cfg.MaxRefChain,
		MinIntervalLength: g.cfg.MinIntervalLength,
		ZetaK:             g.cfg.ZetaK,
	}
	codes := g.cfg.fieldCodes()
	for i, code := range codes {
		header.Codes[i] = uint8(code)
	}
	return header
}

func (h *fileHeader) config() Config {
	cfg := Config{
		WindowSize:        h.WindowSize,
		MaxRefChain:       h.MaxRefChain,
		MinIntervalLength: h.MinIntervalLength,
		ZetaK:             h.ZetaK,
	}
	fields := [8]*uint8{
		(*uint8)(&cfg.OutdegreeCode), (*uint8)(&cfg.ReferenceCode),
		(*uint8)(&cfg.BlockCountCode), (*uint8)(&cfg.BlockLengthCode),
		(*uint8)(&cfg.IntervalCountCode), (*uint8)(&cfg.IntervalStartCode),
		(*uint8)(&cfg.IntervalLengthCode), (*uint8)(&cfg.ResidualCode),
	}
	for i, field := range fields {
		*field = h.Codes[i]
	}
	return cfg
}

// WriteTo serializes the graph: magic, header, offset index, then the
// bit-length-prefixed bitstream.
func (g *CompressedGraph) WriteTo(w io.Writer) (int64, error) {
	// Magic and header go out as one fixed-size block so a failed write
	// cannot leave a bare magic behind.
	header := g.header()
	prefix := make([]byte, len(fileMagic)+binary.Size(&header))
	prefixWriter := bytewriter.New(prefix)
	if _, err := prefixWriter.Write(fileMagic[:]); err != nil {
		return 0, ErrStorage.Wrap(err)
	}
	if err := binary.Write(prefixWriter, binary.LittleEndian, &header); err != nil {
		return 0, ErrStorage.Wrap(err)
	}

	var written int64
	n, err := w.Write(prefix)
	written += int64(n)
	if err != nil {
		return written, ErrStorage.Wrap(err)
	}

	indexBytes, err := g.offsets.WriteTo(w)
	written += indexBytes
	if err != nil {
		return written, ErrStorage.Wrap(err)
	}

	if err := binary.Write(w, binary.LittleEndian, g.bitLen); err != nil {
		return written, ErrStorage.Wrap(err)
	}
	written += 8
	n, err = w.Write(g.bits)
	written += int64(n)
	if err != nil {
		return written, ErrStorage.Wrap(err)
	}
	return written, nil
}

// Save writes the graph to path atomically: the bytes go to a temporary
// file in the same directory, which is renamed over the target only after
// a complete, flushed write. A failed save leaves no partial artifact at
// the destination.
func (g *CompressedGraph) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".zipgraph-*")
	if err != nil {
		return ErrStorage.Wrap(err)
	}
	tmpPath := tmp.Name()

	buffered := bufio.NewWriter(tmp)
	_, writeErr := g.WriteTo(buffered)
	if writeErr == nil {
		writeErr = buffered.Flush()
	}
	if closeErr := tmp.Close(); writeErr == nil && closeErr != nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpPath)
		if _, ok := writeErr.(CodecError); ok {
			return writeErr
		}
		return ErrStorage.Wrap(writeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return ErrStorage.Wrap(err)
	}
	return nil
}

// Open maps a persisted graph into memory. The bitstream aliases the
// mapped region, so the graph must be Closed when no longer needed; until
// then it may be shared freely across goroutines.
func Open(path string) (*CompressedGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrStorage.Wrap(err)
	}
	defer f.Close()

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, ErrStorage.Wrap(err)
	}

	graph, err := OpenBytes(mapped)
	if err != nil {
		mapped.Unmap()
		return nil, err
	}
	graph.mapped = mapped
	return graph, nil
}

// Load reads a persisted graph from a stream into memory.
func Load(r io.Reader) (*CompressedGraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrStorage.Wrap(err)
	}
	return OpenBytes(data)
}

func eliasFanoFrom(r io.Reader) (*eliasfano.Sequence, error) {
	index, err := eliasfano.ReadFrom(r)
	if err != nil {
		return nil, ErrFormat.Wrap(err)
	}
	return index, nil
}

// OpenBytes parses a persisted graph held in memory. The returned graph's
// bitstream aliases data, which must stay immutable for the graph's
// lifetime.
func OpenBytes(data []byte) (*CompressedGraph, error) {
	if len(data) < len(fileMagic) || !bytes.Equal(data[:4], fileMagic[:]) {
		return nil, ErrFormat.WithMessage("not a compressed graph file")
	}
	reader := bytes.NewReader(data[4:])

	var header fileHeader
	if err := binary.Read(reader, binary.LittleEndian, &header); err != nil {
		return nil, ErrFormat.WithMessage("truncated header")
	}
	cfg := header.config()
	if err := cfg.Validate(); err != nil {
		return nil, ErrFormat.Wrap(err)
	}

	index, err := eliasFanoFrom(reader)
	if err != nil {
		return nil, err
	}
	if index.Len() != header.NodeCount+1 {
		return nil, ErrFormat.WithMessage(fmt.Sprintf(
			"offset index has %d entries for %d nodes", index.Len(), header.NodeCount))
	}

	var bitLen uint64
	if err := binary.Read(reader, binary.LittleEndian, &bitLen); err != nil {
		return nil, ErrFormat.WithMessage("truncated bitstream length")
	}
	consumed := len(data) - reader.Len()
	byteLen := int((bitLen + 7) / 8)
	if consumed+byteLen > len(data) {
		return nil, ErrFormat.WithMessage("truncated bitstream")
	}

	return &CompressedGraph{
		cfg:       cfg,
		nodeCount: header.NodeCount,
		arcCount:  header.ArcCount,
		bits:      data[consumed : consumed+byteLen],
		bitLen:    bitLen,
		offsets:   index,
	}, nil
}
