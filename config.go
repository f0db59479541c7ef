package zipgraph

import (
	"fmt"

	"github.com/dargueta/zipgraph/bitstream"
)

// Config holds the knobs that shape the compressed representation. The
// same values must be used to encode and to decode a graph; they are
// persisted in the file header and may also be kept in a companion
// .properties file for human editing.
type Config struct {
	// WindowSize is the number of previously processed successor lists a
	// node may copy from (W). Zero disables reference compression.
	WindowSize uint32
	// MaxRefChain bounds the length of reference chains, which in turn
	// bounds the cost of random access. Zero forbids references entirely.
	MaxRefChain uint32
	// MinIntervalLength is the shortest run of consecutive successors
	// worth encoding as an interval. Must be at least 1.
	MinIntervalLength uint32

	// Per-field code selection.
	OutdegreeCode      bitstream.Code
	ReferenceCode      bitstream.Code
	BlockCountCode     bitstream.Code
	BlockLengthCode    bitstream.Code
	IntervalCountCode  bitstream.Code
	IntervalStartCode  bitstream.Code
	IntervalLengthCode bitstream.Code
	ResidualCode       bitstream.Code

	// ZetaK is the shard width used wherever a field selects the zeta
	// code. Must be in [1, 31].
	ZetaK uint8
}

// DefaultConfig returns the settings used when nothing else is specified:
// a window of 7, chains of at most 3, intervals of 4 or more, gamma codes
// for structure and zeta-3 for residuals.
func DefaultConfig() Config {
	return Config{
		WindowSize:         7,
		MaxRefChain:        3,
		MinIntervalLength:  4,
		OutdegreeCode:      bitstream.Gamma,
		ReferenceCode:      bitstream.Unary,
		BlockCountCode:     bitstream.Gamma,
		BlockLengthCode:    bitstream.Gamma,
		IntervalCountCode:  bitstream.Gamma,
		IntervalStartCode:  bitstream.Gamma,
		IntervalLengthCode: bitstream.Gamma,
		ResidualCode:       bitstream.Zeta,
		ZetaK:              3,
	}
}

// Validate checks the configuration. All failures wrap ErrConfig.
func (c *Config) Validate() error {
	if c.MinIntervalLength < 1 {
		return ErrConfig.WithMessage("minimum interval length must be at least 1")
	}
	if c.WindowSize == 0 && c.MaxRefChain != 0 {
		return ErrConfig.WithMessage(
			"a reference chain depth requires a non-zero window")
	}
	if c.ZetaK < 1 || c.ZetaK > 31 {
		return ErrConfig.WithMessage(
			fmt.Sprintf("zeta parameter %d outside [1, 31]", c.ZetaK))
	}
	for _, code := range c.fieldCodes() {
		if !code.Valid() {
			return ErrConfig.WithMessage(
				fmt.Sprintf("unknown code selector %d", uint8(code)))
		}
	}
	return nil
}

func (c *Config) fieldCodes() [8]bitstream.Code {
	return [8]bitstream.Code{
		c.OutdegreeCode, c.ReferenceCode, c.BlockCountCode, c.BlockLengthCode,
		c.IntervalCountCode, c.IntervalStartCode, c.IntervalLengthCode,
		c.ResidualCode,
	}
}

func (c *Config) zetaK() uint {
	return uint(c.ZetaK)
}
