// Package scanner holds the signature matrix and the all-pairs similarity
// scan. The matrix is write-once per document and read-many afterwards;
// scanning shards the pair space across workers and merges the immutable
// partial results.
package scanner

import (
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/dupscan/dupscan/internal/minhash"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
)

// Matrix is the collection of all documents' signatures, in insertion
// order. Every signature must have the same length; the first Add fixes it.
type Matrix struct {
	mu     sync.RWMutex
	ids    []string
	sigs   []minhash.Signature
	index  map[string]int
	sigLen int
}

// NewMatrix creates an empty Matrix.
func NewMatrix() *Matrix {
	return &Matrix{
		index: make(map[string]int),
	}
}

// Add appends a document's signature. Duplicate document IDs and signatures
// whose length differs from the matrix's are rejected.
func (m *Matrix) Add(docID string, sig minhash.Signature) error {
	if docID == "" {
		return fmt.Errorf("%w: empty document ID", apperrors.ErrInvalidInput)
	}
	if len(sig) == 0 {
		return fmt.Errorf("%w: empty signature for document %s", apperrors.ErrShapeMismatch, docID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.index[docID]; exists {
		return fmt.Errorf("%w: %s", apperrors.ErrDocumentExists, docID)
	}
	if m.sigLen == 0 {
		m.sigLen = len(sig)
	} else if len(sig) != m.sigLen {
		return fmt.Errorf("%w: document %s has %d positions, matrix has %d", apperrors.ErrShapeMismatch, docID, len(sig), m.sigLen)
	}
	m.index[docID] = len(m.ids)
	m.ids = append(m.ids, docID)
	m.sigs = append(m.sigs, sig)
	return nil
}

// Get returns the signature for the given document ID.
func (m *Matrix) Get(docID string) (minhash.Signature, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[docID]
	if !ok {
		return nil, false
	}
	return m.sigs[i], true
}

// Len returns the number of documents in the matrix.
func (m *Matrix) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// SignatureLength returns N, or 0 for an empty matrix.
func (m *Matrix) SignatureLength() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sigLen
}

// IDs returns the document IDs in insertion order.
func (m *Matrix) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Fingerprint identifies the matrix contents for cache keying. Any change
// in document membership or order changes the fingerprint.
func (m *Matrix) Fingerprint() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h := crc32.NewIEEE()
	for _, id := range m.ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%d-%d-%08x", len(m.ids), m.sigLen, h.Sum32())
}

// snapshot returns the internal slices for lock-free reading during a scan.
// The slices are append-only, so a length-bounded view is safe to read
// without holding the lock.
func (m *Matrix) snapshot() ([]string, []minhash.Signature) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ids[:len(m.ids):len(m.ids)], m.sigs[:len(m.sigs):len(m.sigs)]
}
