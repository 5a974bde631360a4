package kv

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"
)

// LoadFunc reads one key from s and applies it to the owner's state.
type LoadFunc func(ctx context.Context, s Store) error

// Loader tracks keys whose stored value has not been read yet. Writing such a
// key would replace data the process has never seen, so owners keep it
// read-only until Sync succeeds for it. The zero value has nothing pending.
//
// A key whose document cannot be decoded counts as loaded: there is nothing
// usable to preserve. OnCorrupt, if set, is told about it.
type Loader struct {
	OnCorrupt func(key string, err error)

	mu      sync.Mutex
	pending map[string]LoadFunc
}

// Add registers fn as the loader of key and marks key as not loaded.
func (l *Loader) Add(key string, fn LoadFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pending == nil {
		l.pending = make(map[string]LoadFunc)
	}
	l.pending[key] = fn
}

// Loaded reports whether key has been read, or was never registered.
func (l *Loader) Loaded(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[key]
	return !ok
}

// Sync runs the loaders of all pending keys. Keys that load are no longer
// pending; the first failure is returned after every key was tried.
func (l *Loader) Sync(ctx context.Context, s Store) error {
	l.mu.Lock()
	keys := make([]string, 0, len(l.pending))
	fns := make(map[string]LoadFunc, len(l.pending))
	for key, fn := range l.pending {
		keys = append(keys, key)
		fns[key] = fn
	}
	l.mu.Unlock()
	slices.Sort(keys)

	var first error
	for _, key := range keys {
		err := fns[key](ctx, s)
		var corrupt *CorruptError
		if errors.As(err, &corrupt) {
			if l.OnCorrupt != nil {
				l.OnCorrupt(key, err)
			}
			err = nil
		}
		if err != nil {
			if first == nil {
				first = errors.Wrapf(err, "load %q", key)
			}
			continue
		}
		l.mu.Lock()
		delete(l.pending, key)
		l.mu.Unlock()
	}
	return first
}
