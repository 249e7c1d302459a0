// Command signer consumes ingest events from Kafka and computes MinHash
// signatures for each document, persisting them to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/signer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dupscan/dupscan/internal/signer"
	"github.com/dupscan/dupscan/internal/signer/consumer"
	"github.com/dupscan/dupscan/internal/signer/store"
	"github.com/dupscan/dupscan/pkg/config"
	"github.com/dupscan/dupscan/pkg/kafka"
	"github.com/dupscan/dupscan/pkg/logger"
	"github.com/dupscan/dupscan/pkg/metrics"
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
	slog.Info("starting signer service",
		"shingle_size", cfg.Minhash.ShingleSize,
		"signature_length", cfg.Minhash.SignatureLength,
		"hash_seed", cfg.Minhash.HashSeed,
	)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	m := metrics.New()
	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Port)
		slog.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	engine, err := signer.NewEngine(cfg.Minhash, m)
	if err != nil {
		slog.Error("failed to build signing engine", "error", err)
		os.Exit(1)
	}
	sigStore := store.New(db)
	c := consumer.New(engine, sigStore, m)

	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, c.Handle)
	defer kafkaConsumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("signer consuming", "topic", cfg.Kafka.Topics.DocumentIngest)
	if err := kafkaConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
		os.Exit(1)
	}
	slog.Info("signer service stopped")
}
