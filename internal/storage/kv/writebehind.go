package kv

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

var _ Persister = (*WriteBehind)(nil)

// WriteBehind is a Persister that snapshots values synchronously and writes
// them to a Store from a background loop. Only the latest value per key is
// kept, so a burst of mutations results in a single write.
//
// Writes that fail are retried on the next flush unless a newer value for the
// same key has been queued in the meantime. Pending writes are lost if the
// process crashes.
type WriteBehind struct {
	store    Store
	lg       *zap.Logger
	interval time.Duration

	mu      sync.Mutex
	pending map[string][]byte
	wake    chan struct{}
}

// NewWriteBehind creates a WriteBehind flushing to store. A non-positive
// interval flushes as soon as a value is queued.
func NewWriteBehind(store Store, lg *zap.Logger, interval time.Duration) *WriteBehind {
	return &WriteBehind{
		store:    store,
		lg:       lg,
		interval: interval,
		pending:  make(map[string][]byte),
		wake:     make(chan struct{}, 1),
	}
}

// Persist snapshots v as JSON and schedules it for writing under key.
func (w *WriteBehind) Persist(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.lg.Error("Encode value for persistence", zap.String("key", key), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.pending[key] = data
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of keys waiting to be written.
func (w *WriteBehind) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Flush writes every pending value. Failed keys are re-queued and the first
// error is returned.
func (w *WriteBehind) Flush(ctx context.Context) error {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string][]byte, len(batch))
	w.mu.Unlock()

	var firstErr error
	for key, data := range batch {
		if err := w.store.Set(ctx, key, data); err != nil {
			w.lg.Warn("Persist failed, will retry", zap.String("key", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			w.requeue(key, data)
		}
	}
	return firstErr
}

func (w *WriteBehind) requeue(key string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, newer := w.pending[key]; !newer {
		w.pending[key] = data
	}
}

// Run flushes queued values until ctx is cancelled, then performs a final
// flush bounded by a short timeout.
func (w *WriteBehind) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := w.Flush(finalCtx); err != nil {
				w.lg.Error("Final flush failed", zap.Int("pending", w.Pending()), zap.Error(err))
			}
			return nil
		case <-w.wake:
			if w.interval > 0 {
				// Coalesce until the next tick.
				continue
			}
			_ = w.Flush(ctx)
		case <-tick:
			if w.Pending() > 0 {
				_ = w.Flush(ctx)
			}
		}
	}
}
