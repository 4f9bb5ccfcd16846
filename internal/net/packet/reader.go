package packet

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Reader reads packet fields from a payload. Byte 0 is always the opcode.
// Reads past the end return zero values; check Err once after parsing.
type Reader struct {
	data  []byte
	off   int
	short bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) need(n int) bool {
	if r.off+n > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return false
	}
	return true
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadD reads 4 bytes as little-endian uint32.
func (r *Reader) ReadD() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

// ReadQ reads 8 bytes as little-endian uint64.
func (r *Reader) ReadQ() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

// ReadF reads an IEEE 754 float64.
func (r *Reader) ReadF() float64 {
	return math.Float64frombits(r.ReadQ())
}

// ReadS reads a NUL-terminated UTF-8 string and returns it in NFC form.
// A missing terminator marks the read as short.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			s := r.data[start:r.off]
			r.off++
			return norm.NFC.String(string(s))
		}
		r.off++
	}
	r.short = true
	return norm.NFC.String(string(r.data[start:]))
}

// Err reports whether any read ran past the end of the payload.
func (r *Reader) Err() error {
	if r.short {
		return ErrShortPacket
	}
	return nil
}
