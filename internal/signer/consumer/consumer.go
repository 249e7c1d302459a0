// Package consumer subscribes to the document-ingest topic and signs each
// incoming document, persisting the signature and final status.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/dupscan/dupscan/internal/ingestion"
	"github.com/dupscan/dupscan/internal/signer"
	"github.com/dupscan/dupscan/internal/signer/store"
	"github.com/dupscan/dupscan/pkg/kafka"
	"github.com/dupscan/dupscan/pkg/metrics"
	"github.com/dupscan/dupscan/pkg/resilience"
)

// Consumer processes ingest events into stored signatures.
type Consumer struct {
	engine  *signer.Engine
	store   *store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Consumer wiring the signing engine to the signature store.
func New(engine *signer.Engine, st *store.Store, m *metrics.Metrics) *Consumer {
	return &Consumer{
		engine:  engine,
		store:   st,
		metrics: m,
		logger:  slog.Default().With("component", "signer-consumer"),
	}
}

// Handle is the kafka.MessageHandler for ingest events. Signing itself
// cannot fail on valid input, so persistence is the only retried step; a
// document whose signature cannot be stored is marked FAILED and the
// message is still committed to avoid blocking the partition.
func (c *Consumer) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
	if err != nil {
		c.logger.Error("dropping undecodable message", "key", string(key), "error", err)
		return nil
	}
	start := time.Now()
	sig, shingles, err := c.engine.SignText(event.Body)
	if err != nil {
		c.logger.Error("signing failed", "doc_id", event.DocumentID, "error", err)
		c.markFailed(ctx, event.DocumentID)
		return nil
	}

	err = resilience.Retry(ctx, "save-signature", resilience.RetryConfig{MaxAttempts: 5}, func() error {
		return c.store.Save(ctx, event.DocumentID, sig)
	})
	if err != nil {
		c.logger.Error("persisting signature failed", "doc_id", event.DocumentID, "error", err)
		c.markFailed(ctx, event.DocumentID)
		return nil
	}

	if c.metrics != nil {
		status := "signed"
		if shingles == 0 {
			status = "empty"
		}
		c.metrics.DocsSignedTotal.WithLabelValues(status).Inc()
	}
	c.logger.Info("document signed",
		"doc_id", event.DocumentID,
		"shingles", shingles,
		"duration", time.Since(start),
	)
	return nil
}

func (c *Consumer) markFailed(ctx context.Context, docID string) {
	if err := c.store.MarkFailed(ctx, docID); err != nil {
		c.logger.Error("failed to mark document failed", "doc_id", docID, "error", err)
	}
	if c.metrics != nil {
		c.metrics.DocsSignedTotal.WithLabelValues("failed").Inc()
	}
}
