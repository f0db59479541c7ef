package zipgraph

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/zipgraph/bitstream"
)

// randomSuccessorLists builds n ascending successor lists with enough
// locality that references and intervals actually get exercised.
func randomSuccessorLists(rng *rand.Rand, n int, maxDegree int) [][]uint64 {
	lists := make([][]uint64, n)
	var base []uint64
	for i := range lists {
		if i%4 == 0 || len(base) == 0 {
			degree := rng.Intn(maxDegree + 1)
			seen := map[uint64]bool{}
			base = base[:0]
			for len(base) < degree {
				var v uint64
				if rng.Intn(3) > 0 && len(base) > 0 {
					v = base[len(base)-1] + 1
				} else {
					v = uint64(rng.Intn(n))
				}
				if v < uint64(n) && !seen[v] {
					seen[v] = true
					base = append(base, v)
				}
			}
			sort.Slice(base, func(a, b int) bool { return base[a] < base[b] })
		}
		list := append([]uint64(nil), base...)
		// Perturb a few entries so copy blocks see holes and residuals.
		if len(list) > 0 && rng.Intn(2) == 0 {
			list = list[:len(list)-1]
		}
		lists[i] = list
	}
	return lists
}

func encodeLists(t *testing.T, cfg Config, lists [][]uint64) encodedSegment {
	t.Helper()
	require.NoError(t, cfg.Validate())
	enc := newSuccessorEncoder(&cfg, uint64(len(lists)), uint64(len(lists)))
	for node, succ := range lists {
		require.NoError(t, enc.encodeNode(uint64(node), succ))
	}
	return enc.finish()
}

func decodeAll(t *testing.T, cfg Config, segment encodedSegment, nodeCount uint64) [][]uint64 {
	t.Helper()
	dec := newDecoder(cfg, segment.bits, segment.bitLen, nodeCount)
	out := make([][]uint64, 0, nodeCount)
	for dec.HasNext() {
		succ, err := dec.Next()
		require.NoError(t, err)
		out = append(out, succ)
	}
	return out
}

func TestCodec__RoundTrip__Configurations(t *testing.T) {
	cases := []struct {
		name   string
		adjust func(*Config)
	}{
		{"Defaults", func(*Config) {}},
		{"NoReferences", func(cfg *Config) {
			cfg.WindowSize = 0
			cfg.MaxRefChain = 0
		}},
		{"TinyWindow", func(cfg *Config) {
			cfg.WindowSize = 1
			cfg.MaxRefChain = 1
		}},
		{"DeltaEverywhere", func(cfg *Config) {
			cfg.OutdegreeCode = bitstream.Delta
			cfg.ReferenceCode = bitstream.Delta
			cfg.BlockCountCode = bitstream.Delta
			cfg.BlockLengthCode = bitstream.Delta
			cfg.IntervalCountCode = bitstream.Delta
			cfg.IntervalStartCode = bitstream.Delta
			cfg.IntervalLengthCode = bitstream.Delta
			cfg.ResidualCode = bitstream.Delta
		}},
		{"ZetaK1", func(cfg *Config) { cfg.ZetaK = 1 }},
		{"ZetaK7", func(cfg *Config) { cfg.ZetaK = 7 }},
		{"LongIntervals", func(cfg *Config) { cfg.MinIntervalLength = 2 }},
	}
	rng := rand.New(rand.NewSource(0xC0DEC))
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.adjust(&cfg)
			lists := randomSuccessorLists(rng, 300, 24)

			segment := encodeLists(t, cfg, lists)
			decoded := decodeAll(t, cfg, segment, uint64(len(lists)))

			require.Len(t, decoded, len(lists))
			for node, expected := range lists {
				if len(expected) == 0 {
					assert.Empty(t, decoded[node], "node %d", node)
					continue
				}
				assert.Equal(t, expected, decoded[node], "node %d", node)
			}
		})
	}
}

func TestCodec__RoundTrip__EmptyGraph(t *testing.T) {
	cfg := DefaultConfig()
	segment := encodeLists(t, cfg, nil)
	assert.Equal(t, []uint64{0}, segment.offsets)

	dec := newDecoder(cfg, segment.bits, segment.bitLen, 0)
	assert.False(t, dec.HasNext())
	succ, err := dec.Next()
	assert.NoError(t, err)
	assert.Nil(t, succ)
}

func TestCodec__Offsets__MatchDecoderPositions(t *testing.T) {
	cfg := DefaultConfig()
	lists := [][]uint64{
		{1, 2, 3, 4, 9},
		nil,
		{1, 2, 3, 4, 9},
		nil,
		{0, 7},
	}
	segment := encodeLists(t, cfg, lists)
	require.Len(t, segment.offsets, len(lists)+1)

	dec := newDecoder(cfg, segment.bits, segment.bitLen, uint64(len(lists)))
	for node := range lists {
		assert.Equal(t, segment.offsets[node], dec.Pos(), "before node %d", node)
		_, err := dec.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, segment.offsets[len(lists)], dec.Pos(),
		"the terminating offset must equal the total stream length")
	assert.Equal(t, segment.bitLen, dec.Pos())
}

func TestCodec__ArcCount__SumsOutdegrees(t *testing.T) {
	cfg := DefaultConfig()
	lists := [][]uint64{{1, 2}, nil, {0, 1, 3}}
	segment := encodeLists(t, cfg, lists)
	assert.EqualValues(t, 5, segment.arcs)
}

func TestCodec__Encode__RejectsBadInput(t *testing.T) {
	cfg := DefaultConfig()
	enc := newSuccessorEncoder(&cfg, 10, 10)

	err := enc.encodeNode(0, []uint64{3, 3})
	assert.ErrorIs(t, err, ErrIntegrity, "duplicate successors")

	err = enc.encodeNode(0, []uint64{5, 4})
	assert.ErrorIs(t, err, ErrIntegrity, "descending successors")

	err = enc.encodeNode(0, []uint64{10})
	assert.ErrorIs(t, err, ErrIntegrity, "successor outside the node range")
}

func TestDecoder__Next__TruncatedStreamFails(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(11))
	lists := randomSuccessorLists(rng, 50, 16)
	segment := encodeLists(t, cfg, lists)

	dec := newDecoder(cfg, segment.bits, segment.bitLen/2, uint64(len(lists)))
	var err error
	for dec.HasNext() {
		if _, err = dec.Next(); err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestDecoder__Next__StaysPoisonedAfterFailure(t *testing.T) {
	cfg := DefaultConfig()
	// An outdegree of 1 followed by garbage that cannot complete a record.
	w := bitstream.NewWriter()
	cfg.OutdegreeCode.Write(w, cfg.zetaK(), 1)

	dec := newDecoder(cfg, w.Bytes(), w.Len(), 3)
	_, err := dec.Next()
	require.ErrorIs(t, err, ErrFormat)

	_, second := dec.Next()
	assert.Equal(t, err, second, "a failed decoder must keep reporting the same error")
	assert.False(t, dec.HasNext())
}

func TestDecoder__Next__RejectsOversizedOutdegree(t *testing.T) {
	cfg := DefaultConfig()
	k := cfg.zetaK()

	// A record claiming more successors than the graph has nodes is
	// corrupt by definition and must be rejected before the interval and
	// residual decoders size anything from the claim.
	cases := []struct {
		name   string
		degree uint64
	}{
		{"Absurd", 1 << 62},
		{"Large", 1 << 40},
		{"BarelyTooBig", 4},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			w := bitstream.NewWriter()
			cfg.OutdegreeCode.Write(w, k, test.degree)
			cfg.ReferenceCode.Write(w, k, 0)
			cfg.IntervalCountCode.Write(w, k, 0)

			dec := newDecoder(cfg, w.Bytes(), w.Len(), 3)
			_, err := dec.Next()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)

			scanner := newDegreeScanner(cfg, w.Bytes(), w.Len(), 3)
			_, err = scanner.Next()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDecoder__Next__RejectsForwardReference(t *testing.T) {
	cfg := DefaultConfig()
	k := cfg.zetaK()
	// Node 0 cannot reference anything, so distance 1 is structurally bad.
	w := bitstream.NewWriter()
	cfg.OutdegreeCode.Write(w, k, 2)
	cfg.ReferenceCode.Write(w, k, 1)

	dec := newDecoder(cfg, w.Bytes(), w.Len(), 1)
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrFormat)
}
