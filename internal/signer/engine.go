// Package signer turns raw document text into MinHash signatures. The
// engine owns the hash family for the process and runs the full pipeline:
// tokenize, shingle, sign.
package signer

import (
	"fmt"
	"time"

	"github.com/dupscan/dupscan/internal/corpus"
	"github.com/dupscan/dupscan/internal/minhash"
	"github.com/dupscan/dupscan/internal/shingle"
	"github.com/dupscan/dupscan/pkg/config"
	"github.com/dupscan/dupscan/pkg/metrics"
)

// Engine computes signatures with a fixed hash family and shingle size.
// All documents signed by one engine are mutually comparable.
type Engine struct {
	family      *minhash.Family
	shingleSize int
	metrics     *metrics.Metrics
}

// NewEngine builds the hash family from configuration. Two engines created
// from the same configuration produce identical signatures.
func NewEngine(cfg config.MinhashConfig, m *metrics.Metrics) (*Engine, error) {
	family, err := minhash.NewFamily(cfg.SignatureLength, cfg.HashSeed, cfg.Modulus)
	if err != nil {
		return nil, fmt.Errorf("building hash family: %w", err)
	}
	return &Engine{
		family:      family,
		shingleSize: cfg.ShingleSize,
		metrics:     m,
	}, nil
}

// Family exposes the engine's hash family for callers that need its
// parameters, such as the signature store.
func (e *Engine) Family() *minhash.Family {
	return e.family
}

// ShingleSize returns the configured shingle width k.
func (e *Engine) ShingleSize() int {
	return e.shingleSize
}

// SignText runs the full pipeline on raw text. Documents shorter than k
// tokens still produce a valid signature from their single shingle; an
// empty document yields the all-sentinel signature.
func (e *Engine) SignText(text string) (minhash.Signature, int, error) {
	start := time.Now()
	tokens := corpus.Tokenize(text)
	set, err := shingle.Build(tokens, e.shingleSize)
	if err != nil {
		return nil, 0, fmt.Errorf("building shingles: %w", err)
	}
	sig := e.family.Sign(set)
	if e.metrics != nil {
		e.metrics.ShinglesPerDoc.Observe(float64(len(set)))
		e.metrics.SignatureBuildTime.Observe(time.Since(start).Seconds())
	}
	return sig, len(set), nil
}

// SignTokens signs an already-tokenized document. Used by the offline CLI
// where the corpus loader has split lines into words.
func (e *Engine) SignTokens(tokens []string) (minhash.Signature, error) {
	set, err := shingle.Build(tokens, e.shingleSize)
	if err != nil {
		return nil, fmt.Errorf("building shingles: %w", err)
	}
	return e.family.Sign(set), nil
}
