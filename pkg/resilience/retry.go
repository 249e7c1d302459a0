// Package resilience provides the fault-tolerance primitives the pipeline
// leans on: exponential-backoff retry for signature persistence, a deadline
// wrapper for pair scans, and a circuit breaker guarding the Redis cache.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig tunes Retry. Zero fields take the package defaults.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFraction <= 0 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

// backoff returns the jittered delay before the next attempt. The delay
// grows geometrically and is clamped to MaxDelay before jitter is applied,
// so jitter can spread retries around the cap rather than pile onto it.
func (cfg RetryConfig) backoff(attempt int) time.Duration {
	d := float64(cfg.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= cfg.Multiplier
		if d >= float64(cfg.MaxDelay) {
			d = float64(cfg.MaxDelay)
			break
		}
	}
	d += d * cfg.JitterFraction * (2*rand.Float64() - 1)
	if d < 0 {
		d = float64(cfg.InitialDelay)
	}
	return time.Duration(d)
}

// Retry runs fn until it succeeds, MaxAttempts is reached, or ctx is
// cancelled. The final error wraps fn's last failure.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	log := slog.Default().With("component", "retry", "operation", name)

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry of %s aborted: %w", name, err)
		}
		if lastErr = fn(); lastErr == nil {
			if attempt > 1 {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, cfg.MaxAttempts, lastErr)
		}

		delay := cfg.backoff(attempt)
		log.Warn("attempt failed, backing off",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay,
			"error", lastErr,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry of %s aborted during backoff: %w", name, ctx.Err())
		}
	}
}
