// Package store persists phishlens state (settings, scans, the ledger) in a
// pluggable key-value backend.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get for an absent key.
var ErrNotFound = errors.New("store: key not found")

// UpdateFunc maps the current value of a key (nil when absent) to its new
// value. It may run more than once for one Update and must not have side
// effects beyond its return value.
type UpdateFunc func(current []byte) ([]byte, error)

// KV is the storage contract every backend implements. Values are opaque.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error

	// Update applies fn as one atomic read-modify-write, also against
	// other processes sharing the backend. An error from fn aborts the
	// update and is returned unchanged.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	Close() error
}
