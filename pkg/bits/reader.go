package bits

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrUnexpectedEOF - not enough bits left for a required read
var ErrUnexpectedEOF = errors.New("bits: unexpected end of stream")

// Reader - MSB-first bit cursor over a fixed bit range of a buffer.
// The cursor never advances past the declared end.
type Reader struct {
	buf []byte // total buf
	pos int    // current pos in buf (bits)
	end int    // readable range (bits)
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b, end: len(b) * 8}
}

// NewReaderBits - reader over the first n bits of the buffer
func NewReaderBits(b []byte, n int) *Reader {
	if max := len(b) * 8; n > max {
		n = max
	}
	return &Reader{buf: b, end: n}
}

// Left - number of bits that can still be read, never negative
func (r *Reader) Left() int {
	if r.pos >= r.end {
		return 0
	}
	return r.end - r.pos
}

// ReadBit - read a single bit, MSB-first within each byte.
// Callers must check Left() before calling. With zero bits left it
// returns 0 and logs a diagnostic instead of touching the buffer.
func (r *Reader) ReadBit() byte {
	if r.pos >= r.end {
		log.Warn().Int("pos", r.pos).Int("end", r.end).Msg("[bits] read past end")
		return 0
	}

	b := (r.buf[r.pos>>3] >> (7 - byte(r.pos&7))) & 0b1
	r.pos++
	return b
}

// ReadUEGolomb - read one unsigned Exp-Golomb value: count zero bits
// up to the terminating 1, then read that many suffix bits.
// No upper bound on the prefix length - unreasonable values are for
// the caller's range checks to catch.
func (r *Reader) ReadUEGolomb() (uint32, error) {
	var zeros byte
	for {
		if r.Left() < 1 {
			return 0, ErrUnexpectedEOF
		}
		if r.ReadBit() != 0 {
			break
		}
		zeros++
	}

	res := uint32(1) << zeros
	for i := zeros; i > 0; i-- {
		if r.Left() < 1 {
			return 0, ErrUnexpectedEOF
		}
		res |= uint32(r.ReadBit()) << (i - 1)
	}

	return res - 1, nil
}

// ReadSEGolomb - read one signed Exp-Golomb value
func (r *Reader) ReadSEGolomb() (int32, error) {
	u, err := r.ReadUEGolomb()
	if err != nil {
		return 0, err
	}
	if u%2 == 0 {
		return -int32(u >> 1), nil
	}
	return int32(u>>1) + 1, nil
}
