// Package redis implements kv.Store on Redis string keys.
package redis

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	goredis "github.com/go-redis/redis/v8"

	"github.com/xenking/qpos/internal/storage/kv"
)

// DefaultPrefix namespaces every key written by the POS.
const DefaultPrefix = "qpos:"

var _ kv.Store = (*Store)(nil)

// Store keeps documents as plain Redis strings without expiry.
type Store struct {
	client goredis.UniversalClient
	prefix string
}

// NewStore returns a Store using client. An empty prefix selects
// DefaultPrefix.
func NewStore(client goredis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// NewClient builds a client for a single Redis server.
func NewClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *Store) key(k string) string { return s.prefix + k }

// Get returns the stored document, or kv.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, kv.ErrKeyNotFound
		}
		return nil, fmt.Errorf("getting key %q: %w", key, err)
	}
	return v, nil
}

// Set stores the document under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("setting key %q: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("removing key %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
