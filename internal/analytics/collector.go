// Package analytics publishes one event per routed query to Kafka. Events
// are buffered and written in batches off the request path; when the buffer
// is full new events are dropped rather than slowing routing down.
package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/kafka"
)

// Publisher writes a batch of events. *kafka.Producer satisfies it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Collector struct {
	producer      Publisher
	eventCh       chan RouteEvent
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	published atomic.Int64
	dropped   atomic.Int64
}

func NewCollector(producer Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Collector{
		producer:      producer,
		eventCh:       make(chan RouteEvent, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It flushes when a batch fills up or the
// flush interval passes, and drains the buffer when ctx ends or Close is
// called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, toKafka(event))
				if len(batch) >= c.batchSize {
					c.flush(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(drainCtx, c.drain(batch))
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues an event without blocking.
func (c *Collector) Track(event RouteEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush. Track must
// not be called after Close.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

// Stats returns the number of events published and dropped so far.
func (c *Collector) Stats() (published, dropped int64) {
	return c.published.Load(), c.dropped.Load()
}

func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	if err := c.producer.PublishBatch(ctx, batch); err != nil {
		c.dropped.Add(int64(len(batch)))
		c.logger.Error("failed to publish route events", "count", len(batch), "error", err)
		return
	}
	c.published.Add(int64(len(batch)))
}

func toKafka(e RouteEvent) kafka.Event {
	return kafka.Event{Key: e.Intent, Type: string(e.Type), Value: e}
}
