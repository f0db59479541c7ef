package zipgraph

import (
	"fmt"
	"io"
	"os"

	"github.com/magiconair/properties"

	"github.com/dargueta/zipgraph/bitstream"
)

// Property keys understood by LoadProperties. They intentionally follow
// the lowercase single-word convention of classic graph-compression
// property files.
const (
	propWindowSize  = "windowsize"
	propMaxRefChain = "maxrefchain"
	propMinInterval = "minintervallength"
	propZetaK       = "zetak"
)

var propCodeKeys = [8]string{
	"outdegreecode", "referencecode", "blockcountcode", "blocklengthcode",
	"intervalcountcode", "intervalstartcode", "intervallengthcode",
	"residualcode",
}

// WriteProperties renders the configuration as a java-style .properties
// stream, the human-editable companion to a compressed graph file.
func (c *Config) WriteProperties(w io.Writer) error {
	p := properties.NewProperties()
	p.Set(propWindowSize, fmt.Sprint(c.WindowSize))
	p.Set(propMaxRefChain, fmt.Sprint(c.MaxRefChain))
	p.Set(propMinInterval, fmt.Sprint(c.MinIntervalLength))
	p.Set(propZetaK, fmt.Sprint(c.ZetaK))
	codes := c.fieldCodes()
	for i, key := range propCodeKeys {
		p.Set(key, codes[i].String())
	}
	_, err := p.Write(w, properties.UTF8)
	if err != nil {
		return ErrStorage.Wrap(err)
	}
	return nil
}

// SaveProperties writes the configuration to a file.
func (c *Config) SaveProperties(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return ErrStorage.Wrap(err)
	}
	defer f.Close()
	return c.WriteProperties(f)
}

// LoadProperties reads a configuration from a .properties file. Keys that
// are absent keep their DefaultConfig values, so a file may specify only
// the settings it cares about.
func LoadProperties(path string) (Config, error) {
	cfg := DefaultConfig()
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return cfg, ErrStorage.Wrap(err)
	}

	readUint := func(key string, fallback uint32) (uint32, error) {
		value, ok := p.Get(key)
		if !ok {
			return fallback, nil
		}
		var parsed uint32
		if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
			return 0, ErrConfig.WithMessage(
				fmt.Sprintf("property %s: bad value %q", key, value))
		}
		return parsed, nil
	}

	if cfg.WindowSize, err = readUint(propWindowSize, cfg.WindowSize); err != nil {
		return cfg, err
	}
	if cfg.MaxRefChain, err = readUint(propMaxRefChain, cfg.MaxRefChain); err != nil {
		return cfg, err
	}
	if cfg.MinIntervalLength, err = readUint(propMinInterval, cfg.MinIntervalLength); err != nil {
		return cfg, err
	}
	zetaK, err := readUint(propZetaK, uint32(cfg.ZetaK))
	if err != nil {
		return cfg, err
	}
	cfg.ZetaK = uint8(zetaK)

	codeFields := [8]*bitstream.Code{
		&cfg.OutdegreeCode, &cfg.ReferenceCode, &cfg.BlockCountCode,
		&cfg.BlockLengthCode, &cfg.IntervalCountCode, &cfg.IntervalStartCode,
		&cfg.IntervalLengthCode, &cfg.ResidualCode,
	}
	for i, key := range propCodeKeys {
		value, ok := p.Get(key)
		if !ok {
			continue
		}
		code, err := bitstream.ParseCode(value)
		if err != nil {
			return cfg, ErrConfig.Wrap(err)
		}
		*codeFields[i] = code
	}

	return cfg, cfg.Validate()
}
