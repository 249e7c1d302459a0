// Package store persists MinHash signatures in PostgreSQL. Signatures are
// encoded as big-endian uint64 arrays in a BYTEA column so they round-trip
// exactly and stay comparable across processes.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/dupscan/dupscan/internal/minhash"
	"github.com/dupscan/dupscan/internal/scanner"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
	"github.com/dupscan/dupscan/pkg/postgres"
)

// Store reads and writes the signatures table.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Store backed by the given PostgreSQL client.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "signature-store"),
	}
}

// Save upserts a document's signature and marks the document SIGNED in the
// same transaction.
func (s *Store) Save(ctx context.Context, docID string, sig minhash.Signature) error {
	if len(sig) == 0 {
		return fmt.Errorf("%w: empty signature for document %s", apperrors.ErrShapeMismatch, docID)
	}
	raw := Encode(sig)
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO signatures (doc_id, sig_len, sig)
		VALUES ($1, $2, $3)
		ON CONFLICT (doc_id) DO UPDATE SET sig_len = EXCLUDED.sig_len, sig = EXCLUDED.sig`,
			docID, len(sig), raw)
		if err != nil {
			return fmt.Errorf("upserting signature: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET status = 'SIGNED', signed_at = NOW() WHERE id = $1`, docID)
		if err != nil {
			return fmt.Errorf("updating document status: %w", err)
		}
		return nil
	})
}

// MarkFailed records that signing a document failed permanently.
func (s *Store) MarkFailed(ctx context.Context, docID string) error {
	_, err := s.db.DB.ExecContext(ctx,
		`UPDATE documents SET status = 'FAILED' WHERE id = $1`, docID)
	if err != nil {
		return fmt.Errorf("marking document failed: %w", err)
	}
	return nil
}

// Load returns a single document's signature.
func (s *Store) Load(ctx context.Context, docID string) (minhash.Signature, error) {
	var sigLen int
	var raw []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT sig_len, sig FROM signatures WHERE doc_id = $1`, docID).Scan(&sigLen, &raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying signature: %w", err)
	}
	return Decode(raw, sigLen)
}

// LoadAll reads every stored signature into a fresh scanner matrix, ordered
// by document ID so the load is deterministic.
func (s *Store) LoadAll(ctx context.Context) (*scanner.Matrix, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT doc_id, sig_len, sig FROM signatures ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("querying signatures: %w", err)
	}
	defer rows.Close()

	matrix := scanner.NewMatrix()
	for rows.Next() {
		var docID string
		var sigLen int
		var raw []byte
		if err := rows.Scan(&docID, &sigLen, &raw); err != nil {
			return nil, fmt.Errorf("scanning signature row: %w", err)
		}
		sig, err := Decode(raw, sigLen)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", docID, err)
		}
		if err := matrix.Add(docID, sig); err != nil {
			return nil, fmt.Errorf("adding document %s to matrix: %w", docID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating signatures: %w", err)
	}
	s.logger.Info("signatures loaded", "count", matrix.Len())
	return matrix, nil
}

// Encode serialises a signature as a big-endian uint64 array.
func Encode(sig minhash.Signature) []byte {
	raw := make([]byte, 8*len(sig))
	for i, v := range sig {
		binary.BigEndian.PutUint64(raw[8*i:], v)
	}
	return raw
}

// Decode parses a big-endian uint64 array and checks it against the
// declared length.
func Decode(raw []byte, sigLen int) (minhash.Signature, error) {
	if sigLen < 1 || len(raw) != 8*sigLen {
		return nil, fmt.Errorf("%w: declared length %d does not match %d bytes", apperrors.ErrShapeMismatch, sigLen, len(raw))
	}
	sig := make(minhash.Signature, sigLen)
	for i := range sig {
		sig[i] = binary.BigEndian.Uint64(raw[8*i:])
	}
	return sig, nil
}
