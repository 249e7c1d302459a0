package minhash

import (
	"fmt"

	apperrors "github.com/dupscan/dupscan/pkg/errors"
)

// Signature is an N-length MinHash signature, one value per hash function
// in the family that built it.
type Signature []uint64

// Similarity estimates the Jaccard similarity of the two documents the
// signatures summarise: the fraction of positions at which they agree.
// Signatures of differing length produce a shape-mismatch error; nothing is
// truncated or padded.
//
// Positions where both signatures hold the empty-document sentinel count as
// agreement, so two empty documents estimate as maximally similar (1.0).
// This is a deliberate convention: strict Jaccard leaves the empty/empty
// case undefined (0/0).
func Similarity(a, b Signature) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d positions", apperrors.ErrShapeMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty signatures", apperrors.ErrShapeMismatch)
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a)), nil
}
