// Package events fans order changes out to external consumers such as
// kitchen displays and accounting.
//
// Publishing is asynchronous: the order store hands events to a Bus, which
// forwards them to a Sink from a background goroutine. A slow or broken sink
// never delays or fails an order mutation.
package events

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/domain/order"
)

// DefaultBufferSize is the number of events a Bus holds before dropping.
const DefaultBufferSize = 256

// Sink delivers events to one destination.
type Sink interface {
	Publish(ctx context.Context, e order.Event) error
	Close() error
}

var _ order.Notifier = (*Bus)(nil)

// Bus queues events and forwards them to a Sink.
type Bus struct {
	sink    Sink
	lg      *zap.Logger
	queue   chan order.Event
	timeout time.Duration
	dropped atomic.Int64
}

// NewBus creates a Bus that forwards to sink. A non-positive size selects
// DefaultBufferSize.
func NewBus(sink Sink, lg *zap.Logger, size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{
		sink:    sink,
		lg:      lg,
		queue:   make(chan order.Event, size),
		timeout: 10 * time.Second,
	}
}

// Notify queues e. When the queue is full the event is dropped and counted.
func (b *Bus) Notify(_ context.Context, e order.Event) {
	select {
	case b.queue <- e:
	default:
		n := b.dropped.Add(1)
		b.lg.Warn("Event queue full, dropping event",
			zap.String("kind", string(e.Kind)),
			zap.String("order_id", e.OrderID),
			zap.Int64("dropped_total", n),
		)
	}
}

// Dropped returns the number of events dropped so far.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Run forwards queued events until ctx is done, then drains what is left and
// closes the sink.
func (b *Bus) Run(ctx context.Context) error {
	defer func() {
		if err := b.sink.Close(); err != nil {
			b.lg.Error("Close event sink", zap.Error(err))
		}
	}()

	for {
		select {
		case e := <-b.queue:
			b.publish(ctx, e)
		case <-ctx.Done():
			b.drain()
			return nil
		}
	}
}

func (b *Bus) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	for {
		select {
		case e := <-b.queue:
			b.publish(ctx, e)
		default:
			return
		}
	}
}

func (b *Bus) publish(ctx context.Context, e order.Event) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.sink.Publish(ctx, e); err != nil {
		b.lg.Error("Publish event",
			zap.String("kind", string(e.Kind)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

// LogSink writes events to the log. It is the sink used when no broker is
// configured.
type LogSink struct {
	lg *zap.Logger
}

// NewLogSink returns a LogSink.
func NewLogSink(lg *zap.Logger) *LogSink {
	return &LogSink{lg: lg}
}

func (s *LogSink) Publish(_ context.Context, e order.Event) error {
	s.lg.Info("Order event",
		zap.String("kind", string(e.Kind)),
		zap.String("order_id", e.OrderID),
		zap.String("status", string(e.Status)),
		zap.Int("count", e.Count),
		zap.Uint64("version", e.Version),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
