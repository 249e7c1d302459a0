package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/dupscan/dupscan/internal/minhash"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Pair is a candidate document pair whose estimated similarity met the
// scan threshold. DocA always precedes DocB in matrix insertion order.
type Pair struct {
	DocA       string  `json:"doc_a"`
	DocB       string  `json:"doc_b"`
	Similarity float64 `json:"similarity"`
}

// Options controls one scan invocation.
type Options struct {
	// Threshold is the minimum estimated similarity for a pair to be
	// emitted. Must be in [0, 1].
	Threshold float64
	// Ranked switches the output from ascending (i, j) pair order to
	// descending similarity. Ranked output is fully materialised and
	// sorted before returning; ties keep ascending pair order.
	Ranked bool
	// Workers is the number of parallel scan workers; 0 means GOMAXPROCS.
	Workers int
}

// Scan compares every unordered document pair {i, j} with i < j exactly
// once and returns the pairs whose estimated similarity is at or above the
// threshold. Rows of the pair triangle are sharded across workers; each
// worker fills its own slots of the result, so the merged output is in
// ascending (i, j) order without re-sorting. A matrix with fewer than two
// documents yields an empty result, not an error.
func (m *Matrix) Scan(ctx context.Context, opts Options) ([]Pair, error) {
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %f not in [0,1]", apperrors.ErrInvalidInput, opts.Threshold)
	}
	logger := slog.Default().With("component", "pair-scanner")

	ids, sigs := m.snapshot()
	n := len(ids)
	if n < 2 {
		logger.Warn("fewer than 2 documents in matrix, nothing to scan", "documents", n)
		return []Pair{}, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n-1 {
		workers = n - 1
	}

	start := time.Now()
	rows := make([][]Pair, n-1)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < n-1; i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				var row []Pair
				for j := i + 1; j < n; j++ {
					sim, err := minhash.Similarity(sigs[i], sigs[j])
					if err != nil {
						return fmt.Errorf("comparing %s and %s: %w", ids[i], ids[j], err)
					}
					if sim >= opts.Threshold {
						row = append(row, Pair{
							DocA:       ids[i],
							DocB:       ids[j],
							Similarity: sim,
						})
					}
				}
				rows[i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, row := range rows {
		total += len(row)
	}
	pairs := make([]Pair, 0, total)
	for _, row := range rows {
		pairs = append(pairs, row...)
	}

	if opts.Ranked {
		// Stable sort keeps ascending pair order within equal similarities.
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i].Similarity > pairs[j].Similarity
		})
	}

	logger.Info("scan complete",
		"documents", n,
		"pairs_evaluated", n*(n-1)/2,
		"pairs_emitted", len(pairs),
		"threshold", opts.Threshold,
		"ranked", opts.Ranked,
		"workers", workers,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pairs, nil
}

// SimilarTo compares one document against every other document in the
// matrix and returns the pairs meeting the threshold, most similar first.
// The queried document is always DocA.
func (m *Matrix) SimilarTo(docID string, threshold float64) ([]Pair, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %f not in [0,1]", apperrors.ErrInvalidInput, threshold)
	}
	m.mu.RLock()
	idx, ok := m.index[docID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, docID)
	}

	ids, sigs := m.snapshot()
	pairs := []Pair{}
	for j := range ids {
		if j == idx {
			continue
		}
		sim, err := minhash.Similarity(sigs[idx], sigs[j])
		if err != nil {
			return nil, fmt.Errorf("comparing %s and %s: %w", docID, ids[j], err)
		}
		if sim >= threshold {
			pairs = append(pairs, Pair{DocA: docID, DocB: ids[j], Similarity: sim})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Similarity > pairs[j].Similarity
	})
	return pairs, nil
}

// PairCount returns the number of unordered pairs a scan over n documents
// evaluates.
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}
