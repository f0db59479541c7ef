package bitstream

import (
	"fmt"
	"math/bits"
)

// Code identifies one of the instantaneous integer codes available to the
// graph codec. Every code maps a non-negative integer to a self-delimiting
// bit string; the codec picks one per field family.
type Code uint8

const (
	// Unary writes x as x zero bits followed by a one.
	Unary Code = iota
	// Gamma is the Elias gamma code: unary exponent, then mantissa.
	Gamma
	// Delta is the Elias delta code: gamma-coded exponent, then mantissa.
	Delta
	// Zeta is the zeta-k code of Boldi and Vigna, parameterized by the
	// shard width k. Zeta with k=1 coincides with Gamma.
	Zeta
)

func (c Code) String() string {
	switch c {
	case Unary:
		return "unary"
	case Gamma:
		return "gamma"
	case Delta:
		return "delta"
	case Zeta:
		return "zeta"
	}
	return fmt.Sprintf("code(%d)", uint8(c))
}

// ParseCode is the inverse of Code.String.
func ParseCode(name string) (Code, error) {
	switch name {
	case "unary":
		return Unary, nil
	case "gamma":
		return Gamma, nil
	case "delta":
		return Delta, nil
	case "zeta":
		return Zeta, nil
	}
	return 0, fmt.Errorf("unknown code name %q", name)
}

// Valid reports whether c is a member of the closed code set.
func (c Code) Valid() bool {
	return c <= Zeta
}

// Write appends x under code c. k is the zeta shard width and is ignored
// by the other codes.
func (c Code) Write(w *Writer, k uint, x uint64) {
	switch c {
	case Unary:
		writeUnary(w, x)
	case Gamma:
		writeGamma(w, x)
	case Delta:
		writeDelta(w, x)
	default:
		writeZeta(w, k, x)
	}
}

// Read consumes one value under code c.
func (c Code) Read(r *Reader, k uint) (uint64, error) {
	switch c {
	case Unary:
		return readUnary(r)
	case Gamma:
		return readGamma(r)
	case Delta:
		return readDelta(r)
	default:
		return readZeta(r, k)
	}
}

// Len returns the exact number of bits Write would emit for x. The
// strategy selector uses this for its cost model, so it must agree with
// Write bit-for-bit.
func (c Code) Len(k uint, x uint64) uint64 {
	switch c {
	case Unary:
		return x + 1
	case Gamma:
		return gammaLen(x)
	case Delta:
		return deltaLen(x)
	default:
		return zetaLen(k, x)
	}
}

func writeUnary(w *Writer, x uint64) {
	for ; x >= 64; x -= 64 {
		w.WriteBits(0, 64)
	}
	// x zeros and the terminating one fit in x+1 bits.
	w.WriteBits(1, uint(x)+1)
}

func readUnary(r *Reader) (uint64, error) {
	var x uint64
	for {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit != 0 {
			return x, nil
		}
		x++
	}
}

func gammaLen(x uint64) uint64 {
	width := uint64(bits.Len64(x + 1))
	return 2*width - 1
}

func writeGamma(w *Writer, x uint64) {
	v := x + 1
	width := uint(bits.Len64(v))
	writeUnary(w, uint64(width-1))
	w.WriteBits(v, width-1)
}

func readGamma(r *Reader) (uint64, error) {
	exp, err := readUnary(r)
	if err != nil {
		return 0, err
	}
	if exp > 63 {
		return 0, fmt.Errorf("%w: gamma exponent %d out of range", ErrTruncated, exp)
	}
	mantissa, err := r.ReadBits(uint(exp))
	if err != nil {
		return 0, err
	}
	return (1<<exp | mantissa) - 1, nil
}

func deltaLen(x uint64) uint64 {
	width := uint64(bits.Len64(x + 1))
	return gammaLen(width-1) + width - 1
}

func writeDelta(w *Writer, x uint64) {
	v := x + 1
	width := uint(bits.Len64(v))
	writeGamma(w, uint64(width-1))
	w.WriteBits(v, width-1)
}

func readDelta(r *Reader) (uint64, error) {
	exp, err := readGamma(r)
	if err != nil {
		return 0, err
	}
	if exp > 63 {
		return 0, fmt.Errorf("%w: delta exponent %d out of range", ErrTruncated, exp)
	}
	mantissa, err := r.ReadBits(uint(exp))
	if err != nil {
		return 0, err
	}
	return (1<<exp | mantissa) - 1, nil
}

// zetaShard finds the shard index h with 2^(hk) <= x+1 < 2^((h+1)k).
func zetaShard(k uint, v uint64) uint64 {
	return uint64((uint(bits.Len64(v)) - 1) / k)
}

// zetaShardBounds returns the lower end of shard h and the number of values
// it spans. The span is clamped when the shard's upper end would pass 2^64;
// the clamp is applied identically by the writer, reader, and cost model.
func zetaShardBounds(k uint, h uint64) (left, span uint64) {
	shift := h * uint64(k)
	left = uint64(1) << shift
	if shift+uint64(k) >= 64 {
		span = -left
	} else {
		span = left<<k - left
	}
	return left, span
}

func zetaLen(k uint, x uint64) uint64 {
	v := x + 1
	h := zetaShard(k, v)
	left, span := zetaShardBounds(k, h)
	s := uint(bits.Len64(span - 1))
	cut := (uint64(1) << s) - span
	// Truncated binary: the first cut values take s-1 bits.
	if v-left < cut {
		return h + 1 + uint64(s) - 1
	}
	return h + 1 + uint64(s)
}

func writeZeta(w *Writer, k uint, x uint64) {
	v := x + 1
	h := zetaShard(k, v)
	writeUnary(w, h)
	left, span := zetaShardBounds(k, h)
	s := uint(bits.Len64(span - 1))
	if s == 0 {
		return
	}
	offset := v - left
	cut := (uint64(1) << s) - span
	if offset < cut {
		w.WriteBits(offset, s-1)
	} else {
		w.WriteBits(offset+cut, s)
	}
}

func readZeta(r *Reader, k uint) (uint64, error) {
	h, err := readUnary(r)
	if err != nil {
		return 0, err
	}
	if h*uint64(k) > 63 {
		return 0, fmt.Errorf("%w: zeta shard %d out of range", ErrTruncated, h)
	}
	left, span := zetaShardBounds(k, h)
	s := uint(bits.Len64(span - 1))
	if s == 0 {
		return left - 1, nil
	}
	offset, err := r.ReadBits(s - 1)
	if err != nil {
		return 0, err
	}
	cut := (uint64(1) << s) - span
	if offset >= cut {
		bit, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		offset = offset<<1 | bit
		offset -= cut
	}
	return left + offset - 1, nil
}

// ToNat maps a signed integer onto the naturals for code input: 0, -1, 1,
// -2, 2, ... become 0, 1, 2, 3, 4, ...
func ToNat(i int64) uint64 {
	if i >= 0 {
		return uint64(i) << 1
	}
	return uint64(-i)<<1 - 1
}

// ToInt inverts ToNat.
func ToInt(n uint64) int64 {
	if n&1 == 0 {
		return int64(n >> 1)
	}
	return -int64(n+1) >> 1
}
