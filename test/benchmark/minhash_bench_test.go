// Package benchmark contains Go benchmarks for the shingling, signing, and
// pair-scanning stages, measuring throughput and allocation behaviour.
package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/dupscan/dupscan/internal/minhash"
	"github.com/dupscan/dupscan/internal/scanner"
	"github.com/dupscan/dupscan/internal/shingle"
)

// syntheticTokens builds a deterministic token sequence of the given length.
func syntheticTokens(n int, salt int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("word%d", (i*7+salt)%997)
	}
	return tokens
}

// BenchmarkShingleBuild measures shingle-set construction over a 1000-token
// document.
func BenchmarkShingleBuild(b *testing.B) {
	tokens := syntheticTokens(1000, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := shingle.Build(tokens, 3); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFamilySign measures single-document signature throughput at
// N=256 over a 1000-token document.
func BenchmarkFamilySign(b *testing.B) {
	family, err := minhash.NewFamily(256, 1, minhash.DefaultModulus)
	if err != nil {
		b.Fatal(err)
	}
	set, err := shingle.Build(syntheticTokens(1000, 0), 3)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		family.Sign(set)
	}
}

// BenchmarkSignatureLengths compares signing cost across signature lengths.
func BenchmarkSignatureLengths(b *testing.B) {
	set, err := shingle.Build(syntheticTokens(500, 0), 3)
	if err != nil {
		b.Fatal(err)
	}
	for _, n := range []int{10, 64, 256, 1024} {
		b.Run(fmt.Sprintf("N=%d", n), func(b *testing.B) {
			family, err := minhash.NewFamily(n, 1, minhash.DefaultModulus)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				family.Sign(set)
			}
		})
	}
}

// buildBenchMatrix signs docs synthetic documents into a matrix.
func buildBenchMatrix(b *testing.B, docs, sigLen int) *scanner.Matrix {
	b.Helper()
	family, err := minhash.NewFamily(sigLen, 1, minhash.DefaultModulus)
	if err != nil {
		b.Fatal(err)
	}
	m := scanner.NewMatrix()
	for d := 0; d < docs; d++ {
		set, err := shingle.Build(syntheticTokens(200, d), 3)
		if err != nil {
			b.Fatal(err)
		}
		if err := m.Add(fmt.Sprintf("doc-%04d", d), family.Sign(set)); err != nil {
			b.Fatal(err)
		}
	}
	return m
}

// BenchmarkScan measures the all-pairs scan over 200 documents.
func BenchmarkScan(b *testing.B) {
	m := buildBenchMatrix(b, 200, 256)
	opts := scanner.Options{Threshold: 0.5}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Scan(context.Background(), opts); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkScanWorkers compares scan throughput across worker counts.
func BenchmarkScanWorkers(b *testing.B) {
	m := buildBenchMatrix(b, 300, 128)
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			opts := scanner.Options{Threshold: 0.5, Workers: workers}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := m.Scan(context.Background(), opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
