package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline derived from ctx. fn must honor its
// context; every operation wrapped here (pair scans, store round trips) is
// context-aware, so no watchdog goroutine is needed. A zero or negative
// timeout disables the deadline. When the deadline fires, the error names
// the operation and wraps context.DeadlineExceeded.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(deadlineCtx)
	if err == nil {
		return nil
	}
	if deadlineCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return fmt.Errorf("%s exceeded %v limit: %w", name, timeout, context.DeadlineExceeded)
	}
	return err
}
