package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Timeout bounds the total time a request may spend in the handler chain.
// The handler goroutine keeps running past the deadline (it observes
// cancellation through the request context), but once 504 has been sent its
// late writes are discarded rather than corrupting the response.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			gw := &guardedWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if gw.owner.CompareAndSwap(ownerNone, ownerTimeout) {
					slog.Warn("request deadline exceeded",
						"method", r.Method,
						"path", r.URL.Path,
						"limit", limit,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					w.Write([]byte(`{"error":"request timeout"}`))
				}
			}
		})
	}
}

const (
	ownerNone int32 = iota
	ownerHandler
	ownerTimeout
)

// guardedWriter gives the response to whichever side writes first. Handler
// writes after the timeout response has been sent are dropped.
type guardedWriter struct {
	http.ResponseWriter
	owner atomic.Int32
}

func (g *guardedWriter) handlerOwns() bool {
	return g.owner.CompareAndSwap(ownerNone, ownerHandler) || g.owner.Load() == ownerHandler
}

func (g *guardedWriter) WriteHeader(code int) {
	if g.handlerOwns() {
		g.ResponseWriter.WriteHeader(code)
	}
}

func (g *guardedWriter) Write(b []byte) (int, error) {
	if g.handlerOwns() {
		return g.ResponseWriter.Write(b)
	}
	return len(b), nil
}
