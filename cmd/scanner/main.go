// Command scanner serves the pair-scan HTTP API.
//
// On startup it loads every stored signature from PostgreSQL into an
// in-memory matrix, then serves GET /api/v1/scan with a Redis-backed result
// cache. Qualifying pairs are published to Kafka as match events.
//
// Usage:
//
//	go run ./cmd/scanner [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dupscan/dupscan/internal/report"
	"github.com/dupscan/dupscan/internal/scanner/cache"
	"github.com/dupscan/dupscan/internal/scanner/handler"
	"github.com/dupscan/dupscan/internal/signer/store"
	"github.com/dupscan/dupscan/pkg/config"
	"github.com/dupscan/dupscan/pkg/health"
	"github.com/dupscan/dupscan/pkg/kafka"
	"github.com/dupscan/dupscan/pkg/logger"
	"github.com/dupscan/dupscan/pkg/metrics"
	"github.com/dupscan/dupscan/pkg/middleware"
	"github.com/dupscan/dupscan/pkg/postgres"
	pkgredis "github.com/dupscan/dupscan/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scanner service", "port", cfg.Server.Port)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Port)
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	sigStore := store.New(db)
	loadCtx, loadCancel := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout*10)
	matrix, err := sigStore.LoadAll(loadCtx)
	loadCancel()
	if err != nil {
		slog.Error("failed to load signature matrix", "error", err)
		os.Exit(1)
	}
	m.MatrixDocuments.Set(float64(matrix.Len()))
	slog.Info("signature matrix loaded",
		"documents", matrix.Len(),
		"signature_length", matrix.SignatureLength(),
	)

	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, scan caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		slog.Info("scan cache enabled", "addr", cfg.Redis.Addr)
	}
	scanCache := cache.New(redisClient, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	matchProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents)
	collector := report.NewCollector(matchProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("match collector started", "topic", cfg.Kafka.Topics.MatchEvents)

	checker := health.NewChecker()
	checker.Register("matrix", func(ctx context.Context) health.ComponentHealth {
		if matrix.Len() >= 2 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", matrix.Len())}
		}
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "fewer than 2 documents"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(matrix, scanCache, collector, cfg.Scan, m)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/scan", h.Scan)
	mux.HandleFunc("GET /api/v1/documents/{id}/similar", h.Similar)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("scanner service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("scanner service stopped")
}
