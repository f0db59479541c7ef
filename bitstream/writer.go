// Package bitstream provides bit-granular reading and writing over byte
// slices, plus the instantaneous integer codes (unary, Elias gamma, Elias
// delta, zeta-k) the graph codec selects per field family.
//
// Bits are written most-significant-first within each byte, matching the
// on-disk layout of the compressed graph format.
package bitstream

// Writer appends individual bits and variable-length codes to a growing
// byte buffer. The zero value is not usable; call NewWriter.
type Writer struct {
	buf []byte
	// Number of valid bits in buf. The last byte may be partially filled;
	// unused trailing bits are zero.
	bitLen uint64
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Len returns the number of bits written so far.
func (w *Writer) Len() uint64 {
	return w.bitLen
}

// Bytes returns the underlying buffer. The final byte is zero-padded if
// Len() is not a multiple of 8. The slice is owned by the writer and only
// valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit uint64) {
	byteIndex := w.bitLen >> 3
	if byteIndex == uint64(len(w.buf)) {
		w.buf = append(w.buf, 0)
	}
	if bit != 0 {
		w.buf[byteIndex] |= 0x80 >> (w.bitLen & 7)
	}
	w.bitLen++
}

// WriteBits appends the n low-order bits of value, most significant first.
// n must be at most 64; values wider than n bits are truncated.
func (w *Writer) WriteBits(value uint64, n uint) {
	if n == 0 {
		return
	}
	if n < 64 {
		value &= (1 << n) - 1
	}
	for n > 0 {
		free := uint(8 - (w.bitLen & 7))
		byteIndex := w.bitLen >> 3
		if byteIndex == uint64(len(w.buf)) {
			w.buf = append(w.buf, 0)
		}
		take := n
		if take > free {
			take = free
		}
		chunk := (value >> (n - take)) & ((1 << take) - 1)
		w.buf[byteIndex] |= byte(chunk << (free - take))
		w.bitLen += uint64(take)
		n -= take
	}
}
