package fingerprint

import (
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
)

// nibbleBits holds the popcount of every 4-bit value.
var nibbleBits = [16]int{0, 1, 1, 2, 1, 2, 2, 3, 1, 2, 2, 3, 2, 3, 3, 4}

// Distance returns the Hamming distance between two encoded perceptual hashes.
func Distance(a, b string) (int, error) {
	if len(a) != HashHexLen || len(b) != HashHexLen {
		return 0, fmt.Errorf("%w: perceptual hashes must be %d hex chars", types.ErrValidation, HashHexLen)
	}

	distance := 0
	for i := range HashHexLen {
		x, ok := nibble(a[i])
		if !ok {
			return 0, fmt.Errorf("%w: invalid hex %q in hash", types.ErrValidation, a[i])
		}
		y, ok := nibble(b[i])
		if !ok {
			return 0, fmt.Errorf("%w: invalid hex %q in hash", types.ErrValidation, b[i])
		}
		distance += nibbleBits[x^y]
	}

	return distance, nil
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
