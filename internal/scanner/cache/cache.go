// Package cache memoises pair-scan results in Redis. Concurrent requests
// for the same scan are collapsed with singleflight, and Redis failures are
// isolated behind a circuit breaker so a degraded cache never blocks a scan.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dupscan/dupscan/internal/scanner"
	"github.com/dupscan/dupscan/pkg/metrics"
	"github.com/dupscan/dupscan/pkg/redis"
	"github.com/dupscan/dupscan/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const defaultTTL = 5 * time.Minute

// ScanCache wraps scan execution with a Redis read-through cache.
type ScanCache struct {
	redis   *redis.Client
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a ScanCache. A nil Redis client disables caching but keeps
// singleflight deduplication.
func New(rdb *redis.Client, m *metrics.Metrics) *ScanCache {
	return &ScanCache{
		redis:   rdb,
		breaker: resilience.NewCircuitBreaker("scan-cache", resilience.CircuitBreakerConfig{}),
		ttl:     defaultTTL,
		metrics: m,
		logger:  slog.Default().With("component", "scan-cache"),
	}
}

// Key derives the cache key for one scan. The matrix fingerprint is part of
// the key, so any change to the signature set invalidates prior entries
// without explicit deletion. The threshold is rendered with full float64
// precision so that distinct thresholds can never share a key.
func Key(fingerprint string, opts scanner.Options) string {
	return fmt.Sprintf("scan:%s:t%s:r%t",
		fingerprint, strconv.FormatFloat(opts.Threshold, 'g', -1, 64), opts.Ranked)
}

// GetOrCompute returns cached pairs when available, otherwise runs compute
// once per key and stores the result. cacheStatus is "hit", "miss", or
// "bypass" when the cache is unavailable.
func (c *ScanCache) GetOrCompute(ctx context.Context, key string, compute func() ([]scanner.Pair, error)) ([]scanner.Pair, string, error) {
	if c.redis == nil {
		pairs, err := c.computeShared(key, compute)
		return pairs, "bypass", err
	}

	var cached string
	err := c.breaker.Execute(func() error {
		var getErr error
		cached, getErr = c.redis.Get(ctx, key)
		if redis.IsNilError(getErr) {
			return nil
		}
		return getErr
	})
	if err == nil && cached != "" {
		var pairs []scanner.Pair
		if jsonErr := json.Unmarshal([]byte(cached), &pairs); jsonErr == nil {
			if c.metrics != nil {
				c.metrics.CacheHitsTotal.Inc()
			}
			return pairs, "hit", nil
		}
		c.logger.Warn("dropping corrupt cache entry", "key", key)
		_ = c.redis.Del(ctx, key)
	}
	if err != nil {
		c.logger.Warn("cache read unavailable", "key", key, "error", err)
	}
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}

	pairs, computeErr := c.computeShared(key, compute)
	if computeErr != nil {
		return nil, "miss", computeErr
	}

	if data, jsonErr := json.Marshal(pairs); jsonErr == nil {
		writeErr := c.breaker.Execute(func() error {
			return c.redis.Set(ctx, key, string(data), c.ttl)
		})
		if writeErr != nil {
			c.logger.Warn("cache write failed", "key", key, "error", writeErr)
		}
	}
	return pairs, "miss", nil
}

// computeShared collapses concurrent identical computations into one.
func (c *ScanCache) computeShared(key string, compute func() ([]scanner.Pair, error)) ([]scanner.Pair, error) {
	v, err, shared := c.group.Do(key, func() (any, error) {
		return compute()
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("scan shared across concurrent requests", "key", key)
	}
	return v.([]scanner.Pair), nil
}

// Invalidate removes all scan entries, regardless of fingerprint.
func (c *ScanCache) Invalidate(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	deleted, err := c.redis.FlushByPattern(ctx, "scan:*")
	if err != nil {
		return fmt.Errorf("invalidating scan cache: %w", err)
	}
	c.logger.Info("scan cache invalidated", "deleted", deleted)
	return nil
}
