// Package eliasfano stores a monotone non-decreasing sequence of integers
// in quasi-succinct form: each value is split into low bits, packed
// verbatim, and high bits, stored as a unary-coded bit vector. Random
// access costs a short scan from a sampled select position.
//
// The graph codec uses it to persist the record offset index, which is
// monotone by construction.
package eliasfano

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"

	bitmap "github.com/boljen/go-bitmap"
)

// selectSampleRate is the number of set bits between consecutive select
// samples in the high-bit vector.
const selectSampleRate = 256

var errNotMonotone = errors.New("sequence is not monotone non-decreasing")

// Sequence is an immutable Elias-Fano-encoded monotone sequence.
type Sequence struct {
	count    uint64
	universe uint64 // strict upper bound on values
	lowWidth uint
	low      []uint64      // packed lowWidth-bit slots
	high     bitmap.Bitmap // unary-coded high parts
	highLen  int
	samples  []uint64 // bit position of every selectSampleRate-th set bit
}

// New encodes values, which must be non-decreasing. An empty slice is
// allowed and produces an empty sequence.
func New(values []uint64) (*Sequence, error) {
	count := uint64(len(values))
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return nil, fmt.Errorf("%w: values[%d] = %d after %d",
				errNotMonotone, i, values[i], values[i-1])
		}
	}
	var universe uint64
	if count > 0 {
		universe = values[count-1] + 1
	}

	s := &Sequence{
		count:    count,
		universe: universe,
		lowWidth: lowBitWidth(universe, count),
	}
	if count == 0 {
		s.high = bitmap.New(0)
		return s, nil
	}

	s.low = make([]uint64, (count*uint64(s.lowWidth)+63)/64)
	s.highLen = int(count + (universe-1)>>s.lowWidth + 1)
	s.high = bitmap.New(s.highLen)

	for i, v := range values {
		s.storeLow(uint64(i), v&lowMask(s.lowWidth))
		s.high.Set(int(v>>s.lowWidth+uint64(i)), true)
	}
	s.buildSamples()
	return s, nil
}

func lowBitWidth(universe, count uint64) uint {
	if count == 0 || universe <= count {
		return 0
	}
	return uint(bits.Len64(universe/count) - 1)
}

func lowMask(width uint) uint64 {
	if width == 0 {
		return 0
	}
	return 1<<width - 1
}

func (s *Sequence) storeLow(slot, value uint64) {
	if s.lowWidth == 0 {
		return
	}
	bitPos := slot * uint64(s.lowWidth)
	word := bitPos / 64
	shift := bitPos % 64
	s.low[word] |= value << shift
	if spill := shift + uint64(s.lowWidth); spill > 64 {
		s.low[word+1] |= value >> (64 - shift)
	}
}

func (s *Sequence) loadLow(slot uint64) uint64 {
	if s.lowWidth == 0 {
		return 0
	}
	bitPos := slot * uint64(s.lowWidth)
	word := bitPos / 64
	shift := bitPos % 64
	value := s.low[word] >> shift
	if spill := shift + uint64(s.lowWidth); spill > 64 {
		value |= s.low[word+1] << (64 - shift)
	}
	return value & lowMask(s.lowWidth)
}

// buildSamples scans the high-bit vector, recording every
// selectSampleRate-th set bit, and returns the total number of set bits.
func (s *Sequence) buildSamples() uint64 {
	s.samples = s.samples[:0]
	seen := uint64(0)
	for pos := 0; pos < s.highLen; pos++ {
		if !s.high.Get(pos) {
			continue
		}
		if seen%selectSampleRate == 0 {
			s.samples = append(s.samples, uint64(pos))
		}
		seen++
	}
	return seen
}

// Len returns the number of stored values.
func (s *Sequence) Len() uint64 {
	return s.count
}

// Access returns the i-th value.
func (s *Sequence) Access(i uint64) (uint64, error) {
	if i >= s.count {
		return 0, fmt.Errorf("index %d out of range [0, %d)", i, s.count)
	}
	sample := i / selectSampleRate
	if sample >= uint64(len(s.samples)) {
		return 0, fmt.Errorf("high bit vector holds no sample for index %d", i)
	}
	pos := s.samples[sample]
	seen := sample * selectSampleRate
	for {
		if pos >= uint64(s.highLen) {
			return 0, fmt.Errorf("high bit vector ends before value %d", i)
		}
		if s.high.Get(int(pos)) {
			if seen == i {
				break
			}
			seen++
		}
		pos++
	}
	highPart := pos - i
	return highPart<<s.lowWidth | s.loadLow(i), nil
}

// Iter calls fn for each value in order, stopping early if fn returns
// false.
func (s *Sequence) Iter(fn func(i, value uint64) bool) {
	i := uint64(0)
	for pos := 0; pos < s.highLen && i < s.count; pos++ {
		if !s.high.Get(pos) {
			continue
		}
		value := (uint64(pos)-i)<<s.lowWidth | s.loadLow(i)
		if !fn(i, value) {
			return
		}
		i++
	}
}

// WriteTo serializes the sequence. The layout is little-endian: count,
// universe, low width, low words, high bit vector length and bytes.
func (s *Sequence) WriteTo(w io.Writer) (int64, error) {
	var written int64
	header := []uint64{s.count, s.universe, uint64(s.lowWidth), uint64(len(s.low)), uint64(s.highLen)}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return written, err
		}
		written += 8
	}
	if err := binary.Write(w, binary.LittleEndian, s.low); err != nil {
		return written, err
	}
	written += int64(len(s.low)) * 8
	n, err := w.Write(s.high.Data(false))
	return written + int64(n), err
}

// ReadFrom deserializes a sequence written by WriteTo.
func ReadFrom(r io.Reader) (*Sequence, error) {
	var count, universe, lowWidth, lowWords, highLen uint64
	for _, field := range []*uint64{&count, &universe, &lowWidth, &lowWords, &highLen} {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return nil, err
		}
	}
	if lowWidth > 64 || lowWords != (count*lowWidth+63)/64 {
		return nil, fmt.Errorf("inconsistent elias-fano header")
	}
	if count == 0 {
		if universe != 0 || highLen != 0 {
			return nil, fmt.Errorf("inconsistent elias-fano header")
		}
	} else if universe == 0 || highLen != count+(universe-1)>>lowWidth+1 {
		return nil, fmt.Errorf("inconsistent elias-fano header")
	}
	s := &Sequence{
		count:    count,
		universe: universe,
		lowWidth: uint(lowWidth),
		highLen:  int(highLen),
	}
	s.low = make([]uint64, lowWords)
	if err := binary.Read(r, binary.LittleEndian, s.low); err != nil {
		return nil, err
	}
	highBytes := make([]byte, (highLen+7)/8)
	if _, err := io.ReadFull(r, highBytes); err != nil {
		return nil, err
	}
	s.high = bitmap.Bitmap(highBytes)
	if set := s.buildSamples(); set != count {
		return nil, fmt.Errorf(
			"high bit vector holds %d values, header says %d", set, count)
	}
	return s, nil
}
