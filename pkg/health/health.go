// Package health aggregates dependency probes (signature matrix, Redis,
// PostgreSQL, Kafka) into liveness and readiness endpoints. Probes run in
// parallel with a shared deadline so one stuck dependency cannot stall the
// whole readiness response.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status is the reported state of one component or the service overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// severity orders statuses so the aggregate is the worst component result.
func severity(s Status) int {
	switch s {
	case StatusDown:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}

// Check probes one dependency. Implementations must honor ctx.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth is the outcome of a single probe.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report aggregates every registered probe.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

const probeTimeout = 5 * time.Second

// Checker holds named probes and runs them concurrently on demand.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	started time.Time
}

func NewChecker() *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		started: time.Now(),
	}
}

// Register adds or replaces the probe stored under name.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

type probeResult struct {
	name   string
	health ComponentHealth
}

// Run executes every probe in parallel and reports the worst status seen.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	probes := make([]Check, len(names))
	for i, name := range names {
		probes[i] = c.checks[name]
	}
	c.mu.RUnlock()

	results := make(chan probeResult, len(names))
	for i, name := range names {
		go func(name string, probe Check) {
			start := time.Now()
			h := probe(ctx)
			h.Latency = time.Since(start).Round(time.Millisecond).String()
			results <- probeResult{name: name, health: h}
		}(name, probes[i])
	}

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(names)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for range names {
		r := <-results
		report.Components[r.name] = r.health
		if severity(r.health.Status) > severity(report.Status) {
			report.Status = r.health.Status
		}
	}
	return report
}

// LiveHandler answers liveness probes. It reports process uptime and never
// consults dependencies: a live process with a down dependency should be
// drained, not restarted.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers readiness probes by running every registered check.
// Anything worse than StatusUp yields 503 so load balancers stop routing.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		report := c.Run(ctx)

		w.Header().Set("Content-Type", "application/json")
		if report.Status != StatusUp {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
