// Command dupscan runs the full near-duplicate detection pipeline offline:
// load a corpus file, build MinHash signatures in parallel, scan all
// document pairs, and print the candidate pairs. Optionally validates the
// estimates against exact Jaccard similarity and scores the output against
// a ground-truth pair file.
//
// Usage:
//
//	go run ./cmd/dupscan -file data/articles.train [-truth data/articles.truth] \
//	    [-k 3] [-n 256] [-seed 42] [-threshold 0.5] [-ranked] [-validate]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/dupscan/dupscan/internal/corpus"
	"github.com/dupscan/dupscan/internal/minhash"
	"github.com/dupscan/dupscan/internal/scanner"
	"github.com/dupscan/dupscan/internal/shingle"
	"github.com/dupscan/dupscan/pkg/config"
	"github.com/dupscan/dupscan/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		file      = flag.String("file", "", "corpus file: one document per line, ID then words")
		truthFile = flag.String("truth", "", "ground-truth file of known duplicate pairs")
		k         = flag.Int("k", config.DefaultShingleSize, "shingle size in tokens")
		n         = flag.Int("n", config.DefaultSignatureLength, "signature length (number of hash functions)")
		seed      = flag.Int64("seed", config.DefaultHashSeed, "hash family seed")
		threshold = flag.Float64("threshold", config.DefaultSimilarityThreshold, "minimum similarity to report")
		ranked    = flag.Bool("ranked", false, "sort output by descending similarity")
		workers   = flag.Int("workers", runtime.GOMAXPROCS(0), "parallel workers for signing and scanning")
		validate  = flag.Bool("validate", false, "recompute exact Jaccard for each reported pair")
		logLevel  = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	)
	flag.Parse()
	logger.Setup(*logLevel, "text")

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: dupscan -file <corpus> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(*file, *truthFile, *k, *n, *seed, *threshold, *ranked, *workers, *validate); err != nil {
		fmt.Fprintf(os.Stderr, "dupscan: %v\n", err)
		os.Exit(1)
	}
}

func run(file, truthFile string, k, n int, seed int64, threshold float64, ranked bool, workers int, validate bool) error {
	// errgroup.SetLimit(0) would block every Go call, so a non-positive
	// worker count falls back to one worker per CPU, matching Matrix.Scan.
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	docs, err := corpus.LoadFile(file)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d documents from %s\n", len(docs), file)

	family, err := minhash.NewFamily(n, seed, minhash.DefaultModulus)
	if err != nil {
		return err
	}

	// Shingle sets are kept when exact-Jaccard validation is requested.
	sets := make([]shingle.Set, len(docs))
	sigs := make([]minhash.Signature, len(docs))

	start := time.Now()
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for i := range docs {
		i := i
		g.Go(func() error {
			set, err := shingle.Build(docs[i].Tokens, k)
			if err != nil {
				return fmt.Errorf("document %s: %w", docs[i].ID, err)
			}
			sigs[i] = family.Sign(set)
			if validate {
				sets[i] = set
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Printf("Built %d signatures (k=%d, N=%d, seed=%d) in %v\n", len(docs), k, n, seed, time.Since(start).Round(time.Millisecond))

	matrix := scanner.NewMatrix()
	for i, doc := range docs {
		if err := matrix.Add(doc.ID, sigs[i]); err != nil {
			return err
		}
	}

	start = time.Now()
	pairs, err := matrix.Scan(context.Background(), scanner.Options{
		Threshold: threshold,
		Ranked:    ranked,
		Workers:   workers,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Scanned %d pairs in %v, %d at or above threshold %.2f\n\n",
		scanner.PairCount(len(docs)), time.Since(start).Round(time.Millisecond), len(pairs), threshold)

	index := make(map[string]int, len(docs))
	for i, doc := range docs {
		index[doc.ID] = i
	}

	if validate {
		fmt.Printf("%12s %12s  %9s  %9s\n", "doc A", "doc B", "estimated", "exact")
	} else {
		fmt.Printf("%12s %12s  %9s\n", "doc A", "doc B", "estimated")
	}
	for _, p := range pairs {
		if validate {
			exact := shingle.Jaccard(sets[index[p.DocA]], sets[index[p.DocB]])
			fmt.Printf("%12s %12s  %9.4f  %9.4f\n", p.DocA, p.DocB, p.Similarity, exact)
		} else {
			fmt.Printf("%12s %12s  %9.4f\n", p.DocA, p.DocB, p.Similarity)
		}
	}

	if truthFile != "" {
		truth, err := corpus.LoadTruth(truthFile)
		if err != nil {
			return err
		}
		ev := corpus.Evaluate(pairs, truth)
		fmt.Printf("\nGround truth: %d known duplicate pairs\n", ev.KnownPairs)
		fmt.Printf("True positives:  %d / %d\n", ev.TruePositives, ev.KnownPairs)
		fmt.Printf("False positives: %d\n", ev.FalsePositives)
	}

	slog.Debug("pipeline complete", "documents", len(docs), "pairs_emitted", len(pairs))
	return nil
}
