// Package store is the string key/value substrate the VIN cache and history
// persist into: one JSON document per key, the same shape browser
// localStorage offers. Backends differ only in where the bytes live.
package store

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means the substrate is absent or already closed.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrQuotaExceeded means the write would push total stored bytes past the quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a string-valued key/value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error
	// Close releases resources. Later calls return ErrUnavailable.
	Close() error
}

// entrySize is what a key/value pair counts against the quota.
func entrySize(key, value string) int {
	return len(key) + len(value)
}
