package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dupscan/dupscan/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Event is one message bound for Kafka. Key selects the partition, which
// keeps all events for a document on one partition and therefore in order;
// Value is JSON-serialized.
type Event struct {
	Key   string
	Value any
}

// Producer publishes events to a single topic. Writes are synchronous with
// acks from all replicas: an ingest response is only returned once the
// document event is durable.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireAll,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish serializes event.Value and writes it, blocking until acknowledged
// or ctx expires.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("encoding event for key %s: %w", event.Key, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		p.logger.Error("publish failed", "key", event.Key, "error", err)
		return fmt.Errorf("publishing to %s: %w", p.writer.Topic, err)
	}
	p.logger.Debug("event published", "key", event.Key, "bytes", len(value))
	return nil
}

// Close flushes buffered messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
