package sequence

import (
	"bytes"
	"fmt"
	"math/rand/v2"
)

// LoadKmers samples count substrings of length k at random offsets of seq
func LoadKmers(seq []byte, k, count int, rng *rand.Rand) ([]string, error) {
	if k <= 0 || count < 0 {
		return nil, fmt.Errorf("invalid k-mer parameters: k=%d count=%d", k, count)
	}
	if len(seq) < k {
		return nil, fmt.Errorf("%w: %d < %d", ErrSequenceTooShort, len(seq), k)
	}

	span := len(seq) - k + 1
	kmers := make([]string, count)
	for i := range kmers {
		off := rng.IntN(span)
		kmers[i] = string(seq[off : off+k])
	}
	return kmers, nil
}

// ApproxMatch counts how many of kmers occur anywhere in seq
func ApproxMatch(kmers []string, seq []byte) int {
	n := 0
	for _, km := range kmers {
		if bytes.Contains(seq, []byte(km)) {
			n++
		}
	}
	return n
}
