package bitstream

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned when a read runs past the end of the stream.
// Callers map it to their own corruption error kind.
var ErrTruncated = errors.New("bit stream truncated")

// Reader consumes bits from a byte slice, most significant first. Readers
// are cheap to create and hold no resources; seeking is by absolute bit
// position.
type Reader struct {
	data []byte
	// Total number of readable bits. Usually 8*len(data), but a caller may
	// cap it to the exact bit length of the stream.
	bitLen uint64
	pos    uint64
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, bitLen: uint64(len(data)) * 8}
}

// NewReaderLen is like NewReader but caps the readable length to bitLen
// bits. bitLen must not exceed 8*len(data).
func NewReaderLen(data []byte, bitLen uint64) *Reader {
	if max := uint64(len(data)) * 8; bitLen > max {
		bitLen = max
	}
	return &Reader{data: data, bitLen: bitLen}
}

// Pos returns the current bit position.
func (r *Reader) Pos() uint64 {
	return r.pos
}

// Seek moves the cursor to an absolute bit position.
func (r *Reader) Seek(bitPos uint64) error {
	if bitPos > r.bitLen {
		return fmt.Errorf("%w: seek to bit %d of %d", ErrTruncated, bitPos, r.bitLen)
	}
	r.pos = bitPos
	return nil
}

// ReadBit consumes and returns the next bit.
func (r *Reader) ReadBit() (uint64, error) {
	if r.pos >= r.bitLen {
		return 0, fmt.Errorf("%w: read past bit %d", ErrTruncated, r.bitLen)
	}
	bit := uint64(r.data[r.pos>>3]>>(7-(r.pos&7))) & 1
	r.pos++
	return bit, nil
}

// ReadBits consumes n bits (n <= 64) and returns them right-aligned.
func (r *Reader) ReadBits(n uint) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	if r.pos+uint64(n) > r.bitLen {
		return 0, fmt.Errorf("%w: need %d bits at position %d of %d",
			ErrTruncated, n, r.pos, r.bitLen)
	}
	var value uint64
	remaining := n
	for remaining > 0 {
		avail := uint(8 - (r.pos & 7))
		take := remaining
		if take > avail {
			take = avail
		}
		b := uint64(r.data[r.pos>>3])
		chunk := (b >> (avail - take)) & ((1 << take) - 1)
		value = value<<take | chunk
		r.pos += uint64(take)
		remaining -= take
	}
	return value, nil
}
