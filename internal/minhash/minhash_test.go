package minhash

import (
	"errors"
	"math"
	"testing"

	"github.com/dupscan/dupscan/internal/shingle"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
)

func mustFamily(t *testing.T, n int, seed int64) *Family {
	t.Helper()
	f, err := NewFamily(n, seed, DefaultModulus)
	if err != nil {
		t.Fatalf("NewFamily(%d, %d) failed: %v", n, seed, err)
	}
	return f
}

func setOf(ids ...uint32) shingle.Set {
	s := make(shingle.Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestNewFamilyReproducible(t *testing.T) {
	a := mustFamily(t, 64, 42)
	b := mustFamily(t, 64, 42)
	set := setOf(1, 2, 3, 100, 4294967295)
	sigA, sigB := a.Sign(set), b.Sign(set)
	for i := range sigA {
		if sigA[i] != sigB[i] {
			t.Fatalf("same seed produced different signatures at position %d: %d vs %d", i, sigA[i], sigB[i])
		}
	}
}

func TestNewFamilyDifferentSeeds(t *testing.T) {
	a := mustFamily(t, 64, 1)
	b := mustFamily(t, 64, 2)
	set := setOf(10, 20, 30)
	sigA, sigB := a.Sign(set), b.Sign(set)
	same := 0
	for i := range sigA {
		if sigA[i] == sigB[i] {
			same++
		}
	}
	if same == len(sigA) {
		t.Error("different seeds produced identical signatures")
	}
}

func TestNewFamilyValidation(t *testing.T) {
	if _, err := NewFamily(0, 1, DefaultModulus); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("n=0: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewFamily(16, 1, uint64(shingle.MaxID)); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("modulus == MaxID: expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewFamily(16, 1, math.MaxUint64); !errors.Is(err, apperrors.ErrInvalidConfig) {
		t.Errorf("modulus > MaxInt64: expected ErrInvalidConfig, got %v", err)
	}
}

func TestFamilyCoefficientsDistinct(t *testing.T) {
	f := mustFamily(t, 512, 7)
	seen := make(map[HashFunc]struct{}, len(f.fns))
	for _, fn := range f.fns {
		if _, dup := seen[fn]; dup {
			t.Fatalf("duplicate hash function (a=%d, b=%d)", fn.A, fn.B)
		}
		seen[fn] = struct{}{}
		if fn.A < 1 || fn.A >= f.modulus {
			t.Errorf("coefficient a=%d out of [1, p)", fn.A)
		}
		if fn.B >= f.modulus {
			t.Errorf("coefficient b=%d out of [0, p)", fn.B)
		}
	}
}

func TestApplyNoOverflow(t *testing.T) {
	// Worst case: a and b near the modulus, x at the top of the ID space.
	fn := HashFunc{A: DefaultModulus - 1, B: DefaultModulus - 1}
	got := fn.apply(shingle.MaxID, DefaultModulus)
	if got >= DefaultModulus {
		t.Errorf("apply returned %d, outside [0, p)", got)
	}
	// (p-1)*x + (p-1) mod p == p-1-x mod p for x < p.
	want := (DefaultModulus - 1 - shingle.MaxID) % DefaultModulus
	if got != want {
		t.Errorf("apply = %d, want %d", got, want)
	}
}

func TestSignEmptySet(t *testing.T) {
	f := mustFamily(t, 32, 3)
	sig := f.Sign(shingle.Set{})
	for i, v := range sig {
		if v != f.Sentinel() {
			t.Fatalf("position %d of empty-set signature is %d, want sentinel %d", i, v, f.Sentinel())
		}
	}
}

func TestSignDeterministic(t *testing.T) {
	f := mustFamily(t, 32, 3)
	set := setOf(5, 6, 7)
	a, b := f.Sign(set), f.Sign(set)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Sign not deterministic at position %d", i)
		}
	}
}

func TestSignValuesBelowModulus(t *testing.T) {
	f := mustFamily(t, 32, 9)
	sig := f.Sign(setOf(0, 1, shingle.MaxID))
	for i, v := range sig {
		if v >= f.Modulus() {
			t.Errorf("position %d holds %d, not below modulus %d", i, v, f.Modulus())
		}
	}
}

func TestSimilaritySelf(t *testing.T) {
	f := mustFamily(t, 64, 11)
	sig := f.Sign(setOf(1, 2, 3))
	sim, err := Similarity(sig, sig)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if sim != 1.0 {
		t.Errorf("self-similarity = %v, want 1.0", sim)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	f := mustFamily(t, 64, 11)
	a := f.Sign(setOf(1, 2, 3, 4))
	b := f.Sign(setOf(3, 4, 5, 6))
	ab, err := Similarity(a, b)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	ba, err := Similarity(b, a)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if ab != ba {
		t.Errorf("Similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestSimilarityBothEmptyDocuments(t *testing.T) {
	f := mustFamily(t, 64, 11)
	a := f.Sign(shingle.Set{})
	b := f.Sign(shingle.Set{})
	sim, err := Similarity(a, b)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	if sim != 1.0 {
		t.Errorf("empty/empty similarity = %v, want 1.0", sim)
	}
}

func TestSimilarityEmptyVersusNonEmpty(t *testing.T) {
	f := mustFamily(t, 64, 11)
	empty := f.Sign(shingle.Set{})
	full := f.Sign(setOf(1, 2, 3))
	sim, err := Similarity(empty, full)
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	// Sentinel equals the modulus, strictly above any real hash value.
	if sim != 0.0 {
		t.Errorf("empty vs non-empty similarity = %v, want 0.0", sim)
	}
}

func TestSimilarityShapeMismatch(t *testing.T) {
	a := make(Signature, 16)
	b := make(Signature, 32)
	if _, err := Similarity(a, b); !errors.Is(err, apperrors.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := Similarity(Signature{}, Signature{}); !errors.Is(err, apperrors.ErrShapeMismatch) {
		t.Errorf("empty signatures: expected ErrShapeMismatch, got %v", err)
	}
}

func TestSimilarityDisjointSetsLow(t *testing.T) {
	f := mustFamily(t, 200, 17)
	a := make(shingle.Set)
	b := make(shingle.Set)
	for i := uint32(0); i < 500; i++ {
		a[i] = struct{}{}
		b[i+10000] = struct{}{}
	}
	sim, err := Similarity(f.Sign(a), f.Sign(b))
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	// True Jaccard is 0; with N=200 the estimate should stay small.
	if sim > 0.1 {
		t.Errorf("disjoint sets estimated at %v, expected near 0", sim)
	}
}

func TestSimilarityConvergesToJaccard(t *testing.T) {
	f := mustFamily(t, 1024, 23)
	// 300 shared of 400 in each set: J = 300/500 = 0.6.
	a := make(shingle.Set)
	b := make(shingle.Set)
	for i := uint32(0); i < 300; i++ {
		a[i] = struct{}{}
		b[i] = struct{}{}
	}
	for i := uint32(0); i < 100; i++ {
		a[1000+i] = struct{}{}
		b[2000+i] = struct{}{}
	}
	exact := shingle.Jaccard(a, b)
	sim, err := Similarity(f.Sign(a), f.Sign(b))
	if err != nil {
		t.Fatalf("Similarity failed: %v", err)
	}
	// Standard error at N=1024 is about 0.015; allow 4 sigma.
	if math.Abs(sim-exact) > 0.07 {
		t.Errorf("estimate %v too far from exact %v", sim, exact)
	}
}

func TestSimilarityErrorShrinksWithSignatureLength(t *testing.T) {
	// 300 shared of 400 in each set: J = 300/500 = 0.6.
	a := make(shingle.Set)
	b := make(shingle.Set)
	for i := uint32(0); i < 300; i++ {
		a[i] = struct{}{}
		b[i] = struct{}{}
	}
	for i := uint32(0); i < 100; i++ {
		a[1000+i] = struct{}{}
		b[2000+i] = struct{}{}
	}
	exact := shingle.Jaccard(a, b)

	// Mean absolute estimation error over many independent families. The
	// standard error of the estimate is sqrt(J(1-J)/N), so quadrupling N
	// should halve it; at minimum the longer signature must do better.
	meanAbsErr := func(n int) float64 {
		const seeds = 25
		var total float64
		for seed := int64(1); seed <= seeds; seed++ {
			f := mustFamily(t, n, seed)
			sim, err := Similarity(f.Sign(a), f.Sign(b))
			if err != nil {
				t.Fatalf("Similarity failed: %v", err)
			}
			total += math.Abs(sim - exact)
		}
		return total / seeds
	}

	errShort := meanAbsErr(16)
	errLong := meanAbsErr(512)
	if errLong >= errShort {
		t.Errorf("mean error did not shrink: N=16 gives %v, N=512 gives %v", errShort, errLong)
	}
	// Expected mean error at N=512 is about 0.017; 0.04 leaves a wide margin.
	if errLong > 0.04 {
		t.Errorf("mean error at N=512 is %v, expected well under 0.04", errLong)
	}
}

func TestEndToEndPipelineAgreement(t *testing.T) {
	f := mustFamily(t, 512, 5)
	base := []string{"we", "hold", "these", "truths", "to", "be", "self", "evident",
		"that", "all", "men", "are", "created", "equal"}
	same := append([]string(nil), base...)
	different := []string{"four", "score", "and", "seven", "years", "ago", "our",
		"fathers", "brought", "forth", "a", "new", "nation"}

	for name, tc := range map[string]struct {
		a, b []string
		want float64
		tol  float64
	}{
		"identical": {base, same, 1.0, 0},
		"unrelated": {base, different, 0.0, 0.05},
	} {
		setA, err := shingle.Build(tc.a, 3)
		if err != nil {
			t.Fatalf("%s: Build failed: %v", name, err)
		}
		setB, err := shingle.Build(tc.b, 3)
		if err != nil {
			t.Fatalf("%s: Build failed: %v", name, err)
		}
		sim, err := Similarity(f.Sign(setA), f.Sign(setB))
		if err != nil {
			t.Fatalf("%s: Similarity failed: %v", name, err)
		}
		if math.Abs(sim-tc.want) > tc.tol {
			t.Errorf("%s: similarity = %v, want %v (tolerance %v)", name, sim, tc.want, tc.tol)
		}
	}
}

func BenchmarkSign(b *testing.B) {
	f, err := NewFamily(256, 1, DefaultModulus)
	if err != nil {
		b.Fatal(err)
	}
	set := make(shingle.Set, 1000)
	for i := uint32(0); i < 1000; i++ {
		set[i*2654435761] = struct{}{}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Sign(set)
	}
}

func BenchmarkSimilarity(b *testing.B) {
	f, _ := NewFamily(256, 1, DefaultModulus)
	sig := f.Sign(setOf(1, 2, 3, 4, 5))
	other := f.Sign(setOf(3, 4, 5, 6, 7))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Similarity(sig, other); err != nil {
			b.Fatal(err)
		}
	}
}
