// Command reporter consumes match events from Kafka, records them in
// PostgreSQL, and serves match listings and aggregate statistics.
//
// Usage:
//
//	go run ./cmd/reporter [-config configs/development.yaml]
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
	"github.com/dupscan/dupscan/pkg/config"
	"github.com/dupscan/dupscan/pkg/health"
	"github.com/dupscan/dupscan/pkg/kafka"
	"github.com/dupscan/dupscan/pkg/logger"
	"github.com/dupscan/dupscan/pkg/middleware"
	"github.com/dupscan/dupscan/pkg/postgres"
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
	slog.Info("starting reporter service", "port", cfg.Server.Port)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recorder := report.NewRecorder(db)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.MatchEvents, report.HandleEvent(recorder))
	recorder.SetConsumer(consumer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := recorder.Start(ctx); err != nil {
			slog.Error("match recorder error", "error", err)
		}
	}()
	slog.Info("match recorder started", "topic", cfg.Kafka.Topics.MatchEvents)

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := report.NewHandler(recorder)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/matches", h.Matches)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
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

	slog.Info("reporter service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("reporter service stopped")
}
