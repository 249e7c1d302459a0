// Package tracing records timed span trees for the scan path and emits them
// through slog. A span carries the request ID as its trace ID, so a slow
// scan can be correlated with the HTTP access log line that produced it.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type ctxKey struct{}

// Span is one timed operation. Child spans attach to the span stored in the
// context at creation time and inherit its trace ID.
type Span struct {
	Name    string
	TraceID string

	mu       sync.Mutex
	start    time.Time
	duration time.Duration
	attrs    []slog.Attr
	children []*Span
}

// StartSpan opens a root span and returns a context carrying it.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: traceID, start: time.Now()}
	return context.WithValue(ctx, ctxKey{}, s), s
}

// StartChildSpan opens a span under the one stored in ctx. Without a parent
// in ctx it behaves like a root span with an empty trace ID.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, start: time.Now()}
	if parent := spanFromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, ctxKey{}, child), child
}

func spanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(ctxKey{}).(*Span)
	return s
}

// End fixes the span's duration. Further SetAttr calls are still recorded.
func (s *Span) End() {
	s.mu.Lock()
	s.duration = time.Since(s.start)
	s.mu.Unlock()
}

// SetAttr attaches a key-value pair that is emitted with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Duration returns the time between span start and End, or zero before End.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Children returns the child spans recorded so far.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log emits the span and its descendants, one slog record per span, depth
// first so the log reads top-down like a call tree.
func (s *Span) Log() {
	s.emit(0)
}

func (s *Span) emit(depth int) {
	s.mu.Lock()
	attrs := []slog.Attr{
		slog.String("trace_id", s.TraceID),
		slog.String("span", s.Name),
		slog.Int64("duration_ms", s.duration.Milliseconds()),
		slog.Int("depth", depth),
	}
	attrs = append(attrs, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	slog.LogAttrs(context.Background(), slog.LevelInfo, "span", attrs...)
	for _, child := range children {
		child.emit(depth + 1)
	}
}
