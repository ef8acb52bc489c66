package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound indicates the key holds no value. Callers treat it as a
// valid empty state for collection keys, not a failure.
var ErrKeyNotFound = errors.New("kv: key not found")

// ErrTxConflict indicates an Update lost the optimistic-concurrency race on
// every retry.
var ErrTxConflict = errors.New("kv: transaction conflict")

// maxUpdateRetries bounds the compare-and-swap loop of Update.
const maxUpdateRetries = 5

// UpdateFunc transforms the current value of a key into its replacement.
// current is nil when the key is absent.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is a string-keyed byte-valued store with whole-value semantics.
// Update applies a read-modify-write atomically per key: concurrent writers
// retry instead of silently overwriting each other.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
