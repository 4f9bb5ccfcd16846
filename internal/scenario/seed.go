package scenario

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed returns a non-zero seed from crypto/rand for runs that did not
// pin one. Log it: it is the only way to replay the run.
func NewSeed() (uint64, error) {
	var b [8]byte
	for {
		if _, err := crand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("read random seed: %w", err)
		}
		if seed := binary.LittleEndian.Uint64(b[:]); seed != 0 {
			return seed, nil
		}
	}
}
