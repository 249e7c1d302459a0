package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
	}, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn ran %d times, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still broken")
	calls := 0
	err := Retry(context.Background(), "broken", RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
	}, func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("final error does not wrap the last failure: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn ran %d times, want 3", calls)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Retry(ctx, "cancelled", RetryConfig{MaxAttempts: 5}, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("fn ran %d times on a cancelled context, want 0", calls)
	}
}

func TestBackoffGrowsAndClamps(t *testing.T) {
	cfg := RetryConfig{
		InitialDelay:   10 * time.Millisecond,
		MaxDelay:       50 * time.Millisecond,
		Multiplier:     2,
		JitterFraction: 0.0001,
	}.withDefaults()
	first := cfg.backoff(1)
	fourth := cfg.backoff(4)
	if fourth <= first {
		t.Errorf("backoff did not grow: attempt 1 %v, attempt 4 %v", first, fourth)
	}
	// 10ms * 2^9 is far past the cap; allow slack for jitter.
	if tenth := cfg.backoff(10); tenth > 51*time.Millisecond {
		t.Errorf("backoff %v exceeds the 50ms cap", tenth)
	}
}

func TestWithTimeoutExpires(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow-scan", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	if err := WithTimeout(context.Background(), time.Second, "fast", func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	sentinel := errors.New("scan failed")
	err := WithTimeout(context.Background(), time.Second, "failing", func(ctx context.Context) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected the operation error, got %v", err)
	}
}

func TestWithTimeoutZeroDisablesDeadline(t *testing.T) {
	err := WithTimeout(context.Background(), 0, "unbounded", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("zero timeout still set a deadline")
		}
		return nil
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Hour,
	})
	boom := errors.New("redis down")
	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: got %v", i, err)
		}
	}
	err := cb.Execute(func() error {
		t.Error("call admitted through an open circuit")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreakerRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     5 * time.Millisecond,
	})
	if err := cb.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected failure")
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open circuit immediately after trip, got %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	// Cool-down elapsed: one trial call is admitted, and success closes
	// the circuit for everyone.
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call rejected: %v", err)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("circuit still open after successful trial: %v", err)
	}
}

func TestCircuitBreakerReopensOnFailedTrial(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     5 * time.Millisecond,
	})
	cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(10 * time.Millisecond)
	if err := cb.Execute(func() error { return errors.New("still down") }); errors.Is(err, ErrCircuitOpen) {
		t.Fatal("trial call was not admitted")
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("circuit not re-opened after failed trial, got %v", err)
	}
}

func TestCircuitBreakerClosedResetsOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{FailureThreshold: 2})
	boom := errors.New("boom")
	// Alternating failure and success never accumulates enough
	// consecutive failures to trip.
	for i := 0; i < 6; i++ {
		cb.Execute(func() error { return boom })
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("iteration %d: circuit tripped on non-consecutive failures: %v", i, err)
		}
	}
}
