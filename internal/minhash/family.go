// Package minhash implements MinHash signature construction and Jaccard
// similarity estimation over shingle sets.
//
// A Family is a fixed collection of N independent hash functions of the
// form h(x) = (a*x + b) mod p, where p is a prime exceeding the maximum
// shingle ID. A document's signature holds, per hash function, the minimum
// hash value over the document's shingles; the fraction of positions at
// which two signatures agree is an unbiased estimator of the true Jaccard
// similarity of the underlying sets, with standard error about
// sqrt(J(1-J)/N).
package minhash

import (
	"fmt"
	"math"
	"math/bits"
	"math/rand"

	"github.com/dupscan/dupscan/internal/shingle"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
)

// DefaultModulus is the smallest prime greater than shingle.MaxID.
const DefaultModulus uint64 = 4294967311

// HashFunc is one member of a hash family: h(x) = (A*x + B) mod p.
type HashFunc struct {
	A uint64
	B uint64
}

// apply evaluates the hash function with a 128-bit intermediate product so
// the arithmetic never overflows. The quotient's high word stays below p
// because A < p and x <= shingle.MaxID, which keeps bits.Div64 safe.
func (h HashFunc) apply(x uint64, p uint64) uint64 {
	hi, lo := bits.Mul64(h.A, x)
	lo, carry := bits.Add64(lo, h.B, 0)
	hi += carry
	_, rem := bits.Div64(hi, lo, p)
	return rem
}

// Family is an immutable collection of pairwise-distinct hash functions
// sharing one modulus. It is generated once per run from a seed and passed
// explicitly wherever signatures are built; there is no process-global
// state.
type Family struct {
	fns     []HashFunc
	modulus uint64
	seed    int64
}

// NewFamily draws n pairwise-distinct hash functions from a seeded
// pseudo-random source. Coefficient a is uniform in [1, modulus-1] and b is
// uniform in [0, modulus-1]; duplicate (a, b) pairs are redrawn so no two
// signature positions are redundant. The same seed always yields the same
// family.
func NewFamily(n int, seed int64, modulus uint64) (*Family, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: signature length must be >= 1, got %d", apperrors.ErrInvalidConfig, n)
	}
	if modulus <= shingle.MaxID {
		return nil, fmt.Errorf("%w: modulus %d must exceed the maximum shingle ID %d", apperrors.ErrInvalidConfig, modulus, uint64(shingle.MaxID))
	}
	if modulus > math.MaxInt64 {
		return nil, fmt.Errorf("%w: modulus %d exceeds the supported coefficient range", apperrors.ErrInvalidConfig, modulus)
	}

	rng := rand.New(rand.NewSource(seed))
	fns := make([]HashFunc, 0, n)
	seen := make(map[HashFunc]struct{}, n)
	for len(fns) < n {
		fn := HashFunc{
			A: 1 + uint64(rng.Int63n(int64(modulus-1))),
			B: uint64(rng.Int63n(int64(modulus))),
		}
		if _, dup := seen[fn]; dup {
			continue
		}
		seen[fn] = struct{}{}
		fns = append(fns, fn)
	}
	return &Family{fns: fns, modulus: modulus, seed: seed}, nil
}

// Len returns the number of hash functions (the signature length N).
func (f *Family) Len() int {
	return len(f.fns)
}

// Modulus returns the shared prime modulus p.
func (f *Family) Modulus() uint64 {
	return f.modulus
}

// Seed returns the seed the family was generated from.
func (f *Family) Seed() int64 {
	return f.seed
}

// Sentinel is the value stored in every position of an empty document's
// signature. It equals the modulus, which is strictly greater than any
// valid hash output.
func (f *Family) Sentinel() uint64 {
	return f.modulus
}

// Sign computes the MinHash signature of a shingle set: position i holds
// the minimum of h_i over all shingles. An empty set yields a signature of
// all sentinel values. Sign is deterministic for a fixed family and set.
func (f *Family) Sign(set shingle.Set) Signature {
	sig := make(Signature, len(f.fns))
	for i := range sig {
		sig[i] = f.modulus
	}
	for id := range set {
		x := uint64(id)
		for i, fn := range f.fns {
			if v := fn.apply(x, f.modulus); v < sig[i] {
				sig[i] = v
			}
		}
	}
	return sig
}
