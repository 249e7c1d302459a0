// Package handler serves the pair-scan HTTP API. A scan runs over the
// in-memory signature matrix, goes through the Redis result cache, and
// publishes qualifying pairs as match events.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dupscan/dupscan/internal/report"
	"github.com/dupscan/dupscan/internal/scanner"
	"github.com/dupscan/dupscan/internal/scanner/cache"
	"github.com/dupscan/dupscan/pkg/config"
	apperrors "github.com/dupscan/dupscan/pkg/errors"
	"github.com/dupscan/dupscan/pkg/logger"
	"github.com/dupscan/dupscan/pkg/metrics"
	"github.com/dupscan/dupscan/pkg/middleware"
	"github.com/dupscan/dupscan/pkg/resilience"
	"github.com/dupscan/dupscan/pkg/tracing"
)

// ScanResponse is the JSON body returned by the scan endpoint.
type ScanResponse struct {
	Documents      int            `json:"documents"`
	PairsEvaluated int            `json:"pairs_evaluated"`
	PairsEmitted   int            `json:"pairs_emitted"`
	Threshold      float64        `json:"threshold"`
	Ranked         bool           `json:"ranked"`
	CacheStatus    string         `json:"cache_status"`
	Pairs          []scanner.Pair `json:"pairs"`
}

type Handler struct {
	matrix    *scanner.Matrix
	cache     *cache.ScanCache
	collector *report.Collector
	cfg       config.ScanConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(matrix *scanner.Matrix, scanCache *cache.ScanCache, collector *report.Collector, cfg config.ScanConfig, m *metrics.Metrics) *Handler {
	return &Handler{
		matrix:    matrix,
		cache:     scanCache,
		collector: collector,
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "scan-handler"),
	}
}

// Scan handles GET /api/v1/scan. Query parameters: threshold (default from
// config), ranked (bool), limit (truncates the response, not the scan).
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	requestID := middleware.GetRequestID(ctx)

	opts := scanner.Options{
		Threshold: h.cfg.SimilarityThreshold,
		Ranked:    h.cfg.RankedOutput,
		Workers:   h.cfg.Workers,
	}
	if s := r.URL.Query().Get("threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil || t < 0 || t > 1 {
			h.writeError(w, http.StatusBadRequest, "threshold must be a number in [0,1]")
			return
		}
		opts.Threshold = t
	}
	if s := r.URL.Query().Get("ranked"); s != "" {
		ranked, err := strconv.ParseBool(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "ranked must be a boolean")
			return
		}
		opts.Ranked = ranked
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	ctx, span := tracing.StartSpan(ctx, "scan", requestID)
	span.SetAttr("threshold", opts.Threshold)
	span.SetAttr("ranked", opts.Ranked)

	n := h.matrix.Len()
	key := cache.Key(h.matrix.Fingerprint(), opts)
	pairs, cacheStatus, err := h.cache.GetOrCompute(ctx, key, func() ([]scanner.Pair, error) {
		var out []scanner.Pair
		scanErr := resilience.WithTimeout(ctx, h.cfg.Timeout, "pair-scan", func(ctx context.Context) error {
			scanCtx, scanSpan := tracing.StartChildSpan(ctx, "pair-scan")
			defer scanSpan.End()
			var innerErr error
			out, innerErr = h.matrix.Scan(scanCtx, opts)
			scanSpan.SetAttr("pairs_emitted", len(out))
			return innerErr
		})
		return out, scanErr
	})
	span.End()

	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("scan failed", "error", err, "status_code", statusCode)
		if h.metrics != nil {
			h.metrics.ScansTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, statusCode, "scan failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	result := "ok"
	if n < 2 {
		result = "empty_corpus"
	}
	if h.metrics != nil {
		h.metrics.ScansTotal.WithLabelValues(result).Inc()
		h.metrics.ScanDuration.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
		if cacheStatus != "hit" {
			h.metrics.PairsEvaluatedTotal.Add(float64(scanner.PairCount(n)))
			h.metrics.PairsEmittedTotal.Add(float64(len(pairs)))
		}
	}

	log.Info("scan completed",
		"documents", n,
		"pairs_emitted", len(pairs),
		"threshold", opts.Threshold,
		"ranked", opts.Ranked,
		"cache_status", cacheStatus,
		"latency_ms", latencyMs,
	)
	span.Log()

	if h.collector != nil && cacheStatus != "hit" {
		now := time.Now().UTC()
		for _, p := range pairs {
			h.collector.Track(report.MatchEvent{
				Type:       report.EventMatch,
				DocA:       p.DocA,
				DocB:       p.DocB,
				Similarity: p.Similarity,
				Threshold:  opts.Threshold,
				Timestamp:  now,
				RequestID:  requestID,
			})
		}
		h.collector.Track(report.ScanEvent{
			Type:           report.EventScan,
			Documents:      n,
			PairsEvaluated: scanner.PairCount(n),
			PairsEmitted:   len(pairs),
			Threshold:      opts.Threshold,
			Ranked:         opts.Ranked,
			CacheStatus:    cacheStatus,
			LatencyMs:      latencyMs,
			Timestamp:      now,
			RequestID:      requestID,
		})
	}

	resp := ScanResponse{
		Documents:      n,
		PairsEvaluated: scanner.PairCount(n),
		PairsEmitted:   len(pairs),
		Threshold:      opts.Threshold,
		Ranked:         opts.Ranked,
		CacheStatus:    cacheStatus,
		Pairs:          pairs,
	}
	if limit > 0 && len(resp.Pairs) > limit {
		resp.Pairs = resp.Pairs[:limit]
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Similar handles GET /api/v1/documents/{id}/similar: compares one document
// against every other document in the matrix.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	docID := r.PathValue("id")
	if docID == "" {
		h.writeError(w, http.StatusBadRequest, "document id is required")
		return
	}

	threshold := h.cfg.SimilarityThreshold
	if s := r.URL.Query().Get("threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil || t < 0 || t > 1 {
			h.writeError(w, http.StatusBadRequest, "threshold must be a number in [0,1]")
			return
		}
		threshold = t
	}

	pairs, err := h.matrix.SimilarTo(docID, threshold)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("similarity lookup failed", "doc_id", docID, "error", err)
		h.writeError(w, statusCode, "similarity lookup failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"document_id": docID,
		"threshold":   threshold,
		"matches":     pairs,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
