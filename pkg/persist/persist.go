// Package persist defines the durable snapshot storage interface used by the
// conversation store.
//
// The whole aggregate is serialised into a single blob under a single key;
// there is no partial update path. Implementations must be safe for
// concurrent use.
package persist

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no blob exists under the given key.
// Callers treat it as "start from defaults", not as a failure.
var ErrNotFound = errors.New("persist: key not found")

// Store is a single-key blob store.
type Store interface {
	// Save durably writes blob under key, replacing any previous value.
	Save(ctx context.Context, key string, blob []byte) error

	// Load returns the blob stored under key, or [ErrNotFound].
	Load(ctx context.Context, key string) ([]byte, error)
}
