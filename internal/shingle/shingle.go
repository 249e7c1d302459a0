// Package shingle converts document token sequences into sets of k-token
// shingle identifiers. A shingle is a window of k consecutive tokens; its
// identifier is the CRC32-IEEE hash of the window text joined with single
// spaces. The hash is fixed for the whole corpus, so two documents sharing
// a k-token sequence always produce the same identifier.
package shingle

import (
	"fmt"
	"hash/crc32"
	"strings"

	apperrors "github.com/dupscan/dupscan/pkg/errors"
)

// MaxID is the largest value the shingle hash can produce. The minhash
// modulus must exceed it so the modular arithmetic does not fold the ID
// space.
const MaxID = 1<<32 - 1

// Set holds the unique shingle identifiers of one document. Duplicate
// windows within a document collapse to a single entry.
type Set map[uint32]struct{}

// Build slides a window of k tokens across the sequence with stride 1 and
// collects the CRC32 of each window into a Set. If the document has fewer
// than k tokens, the single shingle covering all tokens is returned; an
// empty token sequence yields an empty set. Build is a pure function of its
// inputs.
func Build(tokens []string, k int) (Set, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: shingle size must be >= 1, got %d", apperrors.ErrInvalidConfig, k)
	}
	set := make(Set)
	if len(tokens) == 0 {
		return set, nil
	}
	if len(tokens) < k {
		set[ID(tokens)] = struct{}{}
		return set, nil
	}
	for i := 0; i+k <= len(tokens); i++ {
		set[ID(tokens[i:i+k])] = struct{}{}
	}
	return set, nil
}

// ID hashes one window of tokens to its shingle identifier.
func ID(window []string) uint32 {
	return crc32.ChecksumIEEE([]byte(strings.Join(window, " ")))
}

// Contains reports whether the set holds the given identifier.
func (s Set) Contains(id uint32) bool {
	_, ok := s[id]
	return ok
}

// Jaccard returns the exact Jaccard similarity |a∩b| / |a∪b| of two shingle
// sets. Two empty sets are treated as maximally similar (1.0), consistent
// with the sentinel-agreement convention used for MinHash signatures.
func Jaccard(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for id := range small {
		if large.Contains(id) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
