package zipgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dargueta/zipgraph/bitstream"
)

func TestProperties__SaveAndLoad__RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 12
	cfg.MaxRefChain = 2
	cfg.MinIntervalLength = 6
	cfg.OutdegreeCode = bitstream.Delta
	cfg.ResidualCode = bitstream.Zeta
	cfg.ZetaK = 5

	path := filepath.Join(t.TempDir(), "graph.properties")
	require.NoError(t, cfg.SaveProperties(path))

	loaded, err := LoadProperties(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestProperties__Load__PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.properties")
	require.NoError(t, os.WriteFile(path, []byte("windowsize = 3\nresidualcode = delta\n"), 0o644))

	loaded, err := LoadProperties(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.WindowSize = 3
	expected.ResidualCode = bitstream.Delta
	assert.Equal(t, expected, loaded)
}

func TestProperties__Load__BadValuesFail(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"NonNumericWindow", "windowsize = seven\n"},
		{"UnknownCode", "outdegreecode = rice\n"},
		{"InvalidCombination", "windowsize = 0\nmaxrefchain = 2\n"},
		{"ZetaOutOfRange", "zetak = 32\n"},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "graph.properties")
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0o644))
			_, err := LoadProperties(path)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestProperties__Load__MissingFileFails(t *testing.T) {
	_, err := LoadProperties(filepath.Join(t.TempDir(), "absent.properties"))
	assert.ErrorIs(t, err, ErrStorage)
}
