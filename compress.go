package zipgraph

import (
	"context"
	"fmt"
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dargueta/zipgraph/bitstream"
	"github.com/dargueta/zipgraph/eliasfano"
)

// cancelCheckStride is how many nodes a worker encodes between context
// checks.
const cancelCheckStride = 4096

// CompressorOptions tunes a compression job. The zero value (or nil) is
// valid: one worker per CPU and no logging.
type CompressorOptions struct {
	// Workers is the number of concurrent encode workers. Values below 1
	// mean one per CPU. Each worker compresses one contiguous chunk of
	// the node range independently.
	Workers int
	// Logger receives per-chunk progress at debug level and a job summary
	// at info level. Nil disables logging.
	Logger *logrus.Logger
}

func (o *CompressorOptions) workers() int {
	if o == nil || o.Workers < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o *CompressorOptions) logger() *logrus.Logger {
	if o == nil || o.Logger == nil {
		log := logrus.New()
		log.SetLevel(logrus.PanicLevel)
		return log
	}
	return o.Logger
}

// Compress builds a compressed graph from any source. The node range is
// split into contiguous chunks, one per worker; workers encode
// independently, each with its own window, and never reference across a
// chunk boundary (a chunk's first nodes see an empty window, trading a
// little compression for independence). A single-threaded merge then
// concatenates the segments at the bit level and rebases the offsets.
//
// Construction is all-or-nothing: any worker failure cancels the rest and
// no partial result is returned. The context is checked cooperatively
// between batches of nodes.
func Compress(ctx context.Context, source GraphSource, cfg Config, opts *CompressorOptions) (*CompressedGraph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nodeCount := source.NodeCount()
	workers := opts.workers()
	if uint64(workers) > nodeCount {
		workers = int(nodeCount)
	}
	if workers < 1 {
		workers = 1
	}
	log := opts.logger()

	chunkSize := (nodeCount + uint64(workers) - 1) / uint64(workers)
	segments := make([]encodedSegment, workers)
	workerErrs := make([]error, workers)

	group, groupCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		lo := uint64(w) * chunkSize
		hi := lo + chunkSize
		if hi > nodeCount {
			hi = nodeCount
		}
		group.Go(func() error {
			segment, err := compressChunk(groupCtx, source, &cfg, nodeCount, lo, hi)
			if err != nil {
				workerErrs[w] = err
				return err
			}
			segments[w] = segment
			log.WithFields(logrus.Fields{
				"chunk": w,
				"nodes": hi - lo,
				"bits":  segment.bitLen,
			}).Debug("chunk encoded")
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		// Several workers may have failed before cancellation landed;
		// report all of them.
		var combined error
		for _, werr := range workerErrs {
			if werr != nil {
				combined = multierror.Append(combined, werr)
			}
		}
		return nil, combined
	}

	graph, err := mergeSegments(&cfg, nodeCount, segments)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"nodes":   graph.nodeCount,
		"arcs":    graph.arcCount,
		"bits":    graph.bitLen,
		"workers": workers,
	}).Info("graph compressed")
	return graph, nil
}

// compressChunk encodes the node range [lo, hi) into a self-contained
// segment. The encoder starts with an empty window, so no record in the
// segment depends on anything outside it.
func compressChunk(ctx context.Context, source GraphSource, cfg *Config, nodeCount, lo, hi uint64) (encodedSegment, error) {
	encoder := newSuccessorEncoder(cfg, nodeCount, hi-lo)
	for node := lo; node < hi; node++ {
		if (node-lo)%cancelCheckStride == 0 {
			if err := ctx.Err(); err != nil {
				return encodedSegment{}, ErrStorage.WithMessage("compression canceled").Wrap(err)
			}
		}
		succ, err := source.Successors(node)
		if err != nil {
			if _, ok := err.(CodecError); ok {
				return encodedSegment{}, err
			}
			return encodedSegment{}, ErrStorage.Wrap(err)
		}
		if err := encoder.encodeNode(node, succ); err != nil {
			return encodedSegment{}, err
		}
	}
	return encoder.finish(), nil
}

// mergeSegments concatenates the per-chunk bitstreams and rebases every
// chunk's offsets by the bits that precede it. The concatenation is at
// the bit level: records stay contiguous, so a sequential decode of the
// merged stream sees exactly what a single-threaded encode would have
// produced with each chunk's window starting empty.
func mergeSegments(cfg *Config, nodeCount uint64, segments []encodedSegment) (*CompressedGraph, error) {
	writer := bitstream.NewWriter()
	offsets := make([]uint64, 0, nodeCount+1)

	arcs := uint64(0)
	for _, segment := range segments {
		// Drop the segment's terminating offset; the next segment's base
		// (or the final total) replaces it.
		base := writer.Len()
		for _, local := range segment.offsets[:len(segment.offsets)-1] {
			offsets = append(offsets, base+local)
		}
		if err := appendSegmentBits(writer, segment); err != nil {
			return nil, err
		}
		arcs += segment.arcs
	}
	offsets = append(offsets, writer.Len())

	index, err := eliasfano.New(offsets)
	if err != nil {
		return nil, ErrFormat.Wrap(err)
	}
	if uint64(len(offsets)) != nodeCount+1 {
		return nil, ErrFormat.WithMessage(fmt.Sprintf(
			"merged %d offsets for %d nodes", len(offsets), nodeCount))
	}

	return &CompressedGraph{
		cfg:       *cfg,
		nodeCount: nodeCount,
		arcCount:  arcs,
		bits:      writer.Bytes(),
		bitLen:    writer.Len(),
		offsets:   index,
	}, nil
}

func appendSegmentBits(w *bitstream.Writer, segment encodedSegment) error {
	reader := bitstream.NewReaderLen(segment.bits, segment.bitLen)
	remaining := segment.bitLen
	for remaining > 0 {
		n := uint(64)
		if remaining < 64 {
			n = uint(remaining)
		}
		chunk, err := reader.ReadBits(n)
		if err != nil {
			return ErrFormat.Wrap(err)
		}
		w.WriteBits(chunk, n)
		remaining -= uint64(n)
	}
	return nil
}
