package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call outright.
// Cache callers treat it like any other cache failure and fall through to
// computing the scan directly.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig tunes trip and recovery behavior. Zero fields take
// the package defaults (5 consecutive failures, 30s cool-down, 1 trial call).
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
}

func (cfg CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return cfg
}

// CircuitBreaker sheds load from a failing dependency. Consecutive failures
// trip it open; after the cool-down it admits a limited number of trial
// calls and closes again on the first success.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig
	log  *slog.Logger

	mu         sync.Mutex
	state      breakerState
	failures   int
	trippedAt  time.Time
	trialCalls int
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		state: stateClosed,
		log:   slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

// Execute runs fn if the breaker admits the call and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateOpen:
		remaining := cb.cfg.ResetTimeout - time.Since(cb.trippedAt)
		if remaining > 0 {
			return fmt.Errorf("%w: %s (retry in %v)", ErrCircuitOpen, cb.name, remaining.Round(time.Millisecond))
		}
		cb.state = stateHalfOpen
		cb.trialCalls = 0
		cb.log.Info("circuit half-open, admitting trial calls")
		fallthrough
	case stateHalfOpen:
		if cb.trialCalls >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (trial limit reached)", ErrCircuitOpen, cb.name)
		}
		cb.trialCalls++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == stateHalfOpen {
			cb.log.Info("circuit closed, dependency recovered")
		}
		cb.state = stateClosed
		cb.failures = 0
		cb.trialCalls = 0
		return
	}

	cb.failures++
	cb.trippedAt = time.Now()
	switch cb.state {
	case stateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = stateOpen
			cb.log.Warn("circuit opened", "consecutive_failures", cb.failures)
		}
	case stateHalfOpen:
		cb.state = stateOpen
		cb.log.Warn("circuit re-opened, trial call failed")
	}
}
