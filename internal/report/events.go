// Package report collects and aggregates match events. The scanner publishes
// qualifying pairs to Kafka through a buffered collector; the reporter
// consumes them, persists them, and serves aggregate statistics.
package report

import "time"

type EventType string

const (
	EventMatch EventType = "match"
	EventScan  EventType = "scan"
)

// MatchEvent is one candidate pair at or above the scan threshold.
type MatchEvent struct {
	Type       EventType `json:"type"`
	DocA       string    `json:"doc_a"`
	DocB       string    `json:"doc_b"`
	Similarity float64   `json:"similarity"`
	Threshold  float64   `json:"threshold"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// ScanEvent summarises one completed pair scan.
type ScanEvent struct {
	Type           EventType `json:"type"`
	Documents      int       `json:"documents"`
	PairsEvaluated int       `json:"pairs_evaluated"`
	PairsEmitted   int       `json:"pairs_emitted"`
	Threshold      float64   `json:"threshold"`
	Ranked         bool      `json:"ranked"`
	CacheStatus    string    `json:"cache_status"`
	LatencyMs      int64     `json:"latency_ms"`
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id"`
}
