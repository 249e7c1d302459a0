package report

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dupscan/dupscan/pkg/kafka"
	"github.com/dupscan/dupscan/pkg/postgres"
)

// Stats is the aggregate view served by the reporter.
type Stats struct {
	TotalScans      int64       `json:"total_scans"`
	TotalMatches    int64       `json:"total_matches"`
	PairsEvaluated  int64       `json:"pairs_evaluated"`
	CacheHits       int64       `json:"cache_hits"`
	CacheMisses     int64       `json:"cache_misses"`
	AvgScanMs       float64     `json:"avg_scan_ms"`
	P50ScanMs       int64       `json:"p50_scan_ms"`
	P95ScanMs       int64       `json:"p95_scan_ms"`
	P99ScanMs       int64       `json:"p99_scan_ms"`
	TopMatches      []MatchRow  `json:"top_matches"`
	ScansPerMinute  float64     `json:"scans_per_minute"`
	SimilarityHisto []HistoBand `json:"similarity_histogram"`
}

// MatchRow is one persisted match as returned by the matches endpoint.
type MatchRow struct {
	DocA       string    `json:"doc_a"`
	DocB       string    `json:"doc_b"`
	Similarity float64   `json:"similarity"`
	Threshold  float64   `json:"threshold"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoBand is one bucket of the similarity distribution.
type HistoBand struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int64   `json:"count"`
}

// Recorder consumes match and scan events, persisting matches to PostgreSQL
// and keeping in-memory aggregates for the stats endpoint.
type Recorder struct {
	mu             sync.RWMutex
	totalScans     atomic.Int64
	totalMatches   atomic.Int64
	pairsEvaluated atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	scanLatencies  []int64
	simBuckets     [10]int64
	startTime      time.Time

	db       *postgres.Client
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewRecorder creates a Recorder backed by the given database.
func NewRecorder(db *postgres.Client) *Recorder {
	return &Recorder{
		scanLatencies: make([]int64, 0, 10000),
		startTime:     time.Now(),
		db:            db,
		logger:        slog.Default().With("component", "match-recorder"),
	}
}

// SetConsumer attaches the Kafka consumer the recorder runs on.
func (r *Recorder) SetConsumer(consumer *kafka.Consumer) {
	r.consumer = consumer
}

// Start enters the consume loop until ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) error {
	r.logger.Info("match recorder starting")
	return r.consumer.Start(ctx)
}

// HandleEvent returns the kafka.MessageHandler dispatching match and scan
// events to the recorder.
func HandleEvent(rec *Recorder) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		match, err := kafka.DecodeJSON[MatchEvent](value)
		if err == nil && match.Type == EventMatch {
			rec.recordMatch(ctx, match)
			return nil
		}
		scan, scanErr := kafka.DecodeJSON[ScanEvent](value)
		if scanErr == nil && scan.Type == EventScan {
			rec.recordScan(scan)
			return nil
		}
		rec.logger.Error("failed to decode match event", "error", err)
		return nil
	}
}

func (r *Recorder) recordMatch(ctx context.Context, event MatchEvent) {
	r.totalMatches.Add(1)
	bucket := int(event.Similarity * 10)
	if bucket > 9 {
		bucket = 9
	}
	r.mu.Lock()
	r.simBuckets[bucket]++
	r.mu.Unlock()

	if r.db == nil {
		return
	}
	_, err := r.db.DB.ExecContext(ctx,
		`INSERT INTO matches (doc_a, doc_b, similarity, threshold, recorded_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (doc_a, doc_b) DO UPDATE SET similarity = EXCLUDED.similarity, threshold = EXCLUDED.threshold, recorded_at = EXCLUDED.recorded_at`,
		event.DocA, event.DocB, event.Similarity, event.Threshold, event.Timestamp)
	if err != nil {
		r.logger.Error("failed to persist match", "doc_a", event.DocA, "doc_b", event.DocB, "error", err)
	}
}

func (r *Recorder) recordScan(event ScanEvent) {
	r.totalScans.Add(1)
	r.pairsEvaluated.Add(int64(event.PairsEvaluated))
	switch event.CacheStatus {
	case "hit":
		r.cacheHits.Add(1)
	case "miss":
		r.cacheMisses.Add(1)
	}
	r.mu.Lock()
	r.scanLatencies = append(r.scanLatencies, event.LatencyMs)
	r.mu.Unlock()
}

// Matches returns the most similar persisted matches, up to limit.
func (r *Recorder) Matches(ctx context.Context, limit int) ([]MatchRow, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT doc_a, doc_b, similarity, threshold, recorded_at
	FROM matches ORDER BY similarity DESC, doc_a, doc_b LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]MatchRow, 0, limit)
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.DocA, &m.DocB, &m.Similarity, &m.Threshold, &m.RecordedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Stats computes the aggregate statistics snapshot.
func (r *Recorder) Stats(ctx context.Context) Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalScans:     r.totalScans.Load(),
		TotalMatches:   r.totalMatches.Load(),
		PairsEvaluated: r.pairsEvaluated.Load(),
		CacheHits:      r.cacheHits.Load(),
		CacheMisses:    r.cacheMisses.Load(),
	}
	if len(r.scanLatencies) > 0 {
		sorted := make([]int64, len(r.scanLatencies))
		copy(sorted, r.scanLatencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgScanMs = float64(sum) / float64(len(sorted))
		stats.P50ScanMs = percentile(sorted, 50)
		stats.P95ScanMs = percentile(sorted, 95)
		stats.P99ScanMs = percentile(sorted, 99)
	}
	for i, count := range r.simBuckets {
		stats.SimilarityHisto = append(stats.SimilarityHisto, HistoBand{
			Low:   float64(i) / 10,
			High:  float64(i+1) / 10,
			Count: count,
		})
	}
	elapsed := time.Since(r.startTime).Minutes()
	if elapsed > 0 {
		stats.ScansPerMinute = float64(stats.TotalScans) / elapsed
	}
	if r.db != nil {
		if top, err := r.Matches(ctx, 10); err == nil {
			stats.TopMatches = top
		}
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
