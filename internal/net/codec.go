package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPayload is the largest payload a frame can carry.
const MaxPayload = 0xFFFF - 2

// ErrFrameTooLarge is returned by WriteFrame for payloads over MaxPayload.
var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame reads one frame from r.
// Wire format: [2 bytes LE: total length including header][payload].
// Returns the payload bytes (without the 2-byte length header).
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	totalLen := int(binary.LittleEndian.Uint16(header[:]))
	payloadLen := totalLen - 2
	if payloadLen <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", totalLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload (%d bytes): %w", payloadLen, err)
	}
	return payload, nil
}

// WriteFrame writes one frame to w as a single Write call.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}
	buf := make([]byte, 2, len(data)+2)
	binary.LittleEndian.PutUint16(buf, uint16(len(data)+2))
	buf = append(buf, data...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
