package kv_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/qpos/internal/storage/kv"
	"github.com/xenking/qpos/internal/storage/memory"
)

// --- Mock implementations ---

type flakyStore struct {
	*memory.Store
	mu    sync.Mutex
	fails int
	sets  int
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.sets++
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return errors.New("connection reset")
	}
	f.mu.Unlock()
	return f.Store.Set(ctx, key, value)
}

type stamped struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// --- Tests ---

func TestLoadSave_RoundTripsTimestamps(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	require.NoError(t, kv.Save(ctx, s, "k", stamped{Name: "a", At: at}))

	raw, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"2026-03-14T09:26:53Z"`)

	var got stamped
	found, err := kv.Load(ctx, s, "k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, at.Equal(got.At))
}

func TestLoad_MissingKey(t *testing.T) {
	var got []stamped
	found, err := kv.Load(context.Background(), memory.New(), "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestLoad_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Set(ctx, "k", []byte("{not json")))

	var got stamped
	_, err := kv.Load(ctx, s, "k", &got)
	require.Error(t, err)
}

func TestWriteBehind_CoalescesLatestValue(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Store: memory.New()}
	w := kv.NewWriteBehind(s, zap.NewNop(), 0)

	w.Persist("k", []int{1})
	w.Persist("k", []int{1, 2})
	assert.Equal(t, 1, w.Pending())

	require.NoError(t, w.Flush(ctx))
	assert.Equal(t, 1, s.sets)

	var got []int
	_, err := kv.Load(ctx, s, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
}

func TestWriteBehind_RequeuesFailedWrites(t *testing.T) {
	ctx := context.Background()
	s := &flakyStore{Store: memory.New(), fails: 1}
	w := kv.NewWriteBehind(s, zap.NewNop(), 0)

	w.Persist("k", "v1")
	require.Error(t, w.Flush(ctx))
	assert.Equal(t, 1, w.Pending())

	require.NoError(t, w.Flush(ctx))
	assert.Equal(t, 0, w.Pending())

	var got string
	_, err := kv.Load(ctx, s, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, "v1", got)
}

func TestWriteBehind_RunFlushesOnShutdown(t *testing.T) {
	s := memory.New()
	w := kv.NewWriteBehind(s, zap.NewNop(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Persist("k", "queued")
	cancel()
	require.NoError(t, <-done)

	var got string
	found, err := kv.Load(context.Background(), s, "k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "queued", got)
}
