package packet

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Writer builds a server packet. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

func NewWriterWithOpcode(opcode byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 64)}
	w.WriteC(opcode)
	return w
}

// Grow reserves room for n more bytes.
func (w *Writer) Grow(n int) {
	if cap(w.buf)-len(w.buf) < n {
		nb := make([]byte, len(w.buf), len(w.buf)+n)
		copy(nb, w.buf)
		w.buf = nb
	}
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteD writes 4 bytes little-endian.
func (w *Writer) WriteD(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteQ writes 8 bytes little-endian.
func (w *Writer) WriteQ(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteF writes an IEEE 754 float64.
func (w *Writer) WriteF(v float64) {
	w.WriteQ(math.Float64bits(v))
}

// WriteS writes s in NFC form followed by a NUL terminator.
// Embedded NULs would end the string early on the reader side, so they are dropped.
func (w *Writer) WriteS(s string) {
	s = norm.NFC.String(s)
	for i := 0; i < len(s); i++ {
		if s[i] != 0 {
			w.buf = append(w.buf, s[i])
		}
	}
	w.buf = append(w.buf, 0)
}

// WriteBool writes 1 for true, 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteC(1)
	} else {
		w.WriteC(0)
	}
}

// Bytes returns the packet content.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}
