// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	DocsIngestedTotal    prometheus.Counter
	DocsSignedTotal      *prometheus.CounterVec
	ShinglesPerDoc       prometheus.Histogram
	SignatureBuildTime   prometheus.Histogram
	ScansTotal           *prometheus.CounterVec
	ScanDuration         *prometheus.HistogramVec
	PairsEvaluatedTotal  prometheus.Counter
	PairsEmittedTotal    prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	MatrixDocuments      prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocsIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_ingested_total",
				Help: "Total documents accepted by the ingestion service.",
			},
		),
		DocsSignedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_signed_total",
				Help: "Total documents signed by status (signed, failed, empty).",
			},
			[]string{"status"},
		),
		ShinglesPerDoc: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shingles_per_document",
				Help:    "Number of unique shingles extracted per document.",
				Buckets: []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),
		SignatureBuildTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signature_build_seconds",
				Help:    "Time to compute one MinHash signature.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scans_total",
				Help: "Total pair scans by result (ok, empty_corpus, error).",
			},
			[]string{"result"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scan_duration_seconds",
				Help:    "Pair scan latency in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"cache_status"},
		),
		PairsEvaluatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pairs_evaluated_total",
				Help: "Total document pairs whose signatures were compared.",
			},
		),
		PairsEmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pairs_emitted_total",
				Help: "Total candidate pairs at or above the similarity threshold.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of scan cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of scan cache misses.",
			},
		),
		MatrixDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "matrix_documents",
				Help: "Number of signatures held in the in-memory matrix.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocsIngestedTotal,
		m.DocsSignedTotal,
		m.ShinglesPerDoc,
		m.SignatureBuildTime,
		m.ScansTotal,
		m.ScanDuration,
		m.PairsEvaluatedTotal,
		m.PairsEmittedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.MatrixDocuments,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
