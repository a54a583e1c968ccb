package storage

import "context"

// Backend is the raw key/value medium behind a Store.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key and reports whether it existed. Removing a missing
	// key is not an error.
	Remove(ctx context.Context, key string) (bool, error)
}
