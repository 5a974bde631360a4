// Package kv defines the key-value persistence port used by the POS services.
//
// Backends store opaque JSON blobs under well-known keys. The typed helpers
// Load and Save own (de)serialization, so timestamps are converted to and from
// RFC 3339 strings here and nowhere else.
package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
)

// Well-known keys.
const (
	KeyOrders             = "orders"
	KeyOrderArchive       = "order-archive"
	KeyMenuItems          = "menu-items"
	KeyCategories         = "categories"
	KeyTaxSettings        = "tax-settings"
	KeyDiscountTypes      = "discount-types"
	KeyRestaurantSettings = "restaurant-settings"
	KeyGeneralSettings    = "general-settings"
	KeyUsers              = "users"
)

// ErrKeyNotFound is returned by Store.Get when the key has never been set or
// was removed.
var ErrKeyNotFound = errors.New("key not found")

// CorruptError reports a stored document that cannot be decoded.
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store is a key-value backend holding JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Persister accepts values to be written eventually. Implementations must not
// block the caller on I/O.
type Persister interface {
	Persist(key string, v any)
}

// Load decodes the document stored under key into dst. It reports false when
// the key does not exist, leaving dst untouched.
func Load[T any](ctx context.Context, s Store, key string, dst *T) (bool, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "get %q", key)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return false, &CorruptError{Key: key, Err: err}
	}
	*dst = v
	return true, nil
}

// Save encodes v and stores it under key.
func Save[T any](ctx context.Context, s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %q", key)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}
