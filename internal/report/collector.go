package report

import (
	"context"
	"log/slog"

	"github.com/dupscan/dupscan/pkg/kafka"
)

// Collector buffers match events and publishes them to Kafka in the
// background so the scan path never blocks on the broker.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan interface{}
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector with the given buffer size; a
// non-positive size falls back to 10000.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan interface{}, bufferSize),
		logger:   slog.Default().With("component", "match-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the background publish loop.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.producer.Publish(ctx, kafka.Event{
					Key:   "match",
					Value: event,
				}); err != nil {
					c.logger.Error("failed to publish match event", "error", err)
				}
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("match collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event without blocking. Events are dropped when the
// buffer is full.
func (c *Collector) Track(event interface{}) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("match event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the publish loop to exit.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			ctx := context.Background()
			if err := c.producer.Publish(ctx, kafka.Event{
				Key:   "match",
				Value: event,
			}); err != nil {
				c.logger.Error("failed to publish remaining event", "error", err)
			}
		default:
			return
		}
	}
}
