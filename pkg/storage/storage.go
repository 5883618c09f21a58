// Package storage persists turn artifacts: the synthesized audio and the
// transcript archived after each tutoring turn. It abstracts the backend so
// deployments can point at an S3-compatible object store while development
// and tests use a local directory.
package storage

import (
	"context"
	"io"
)

// Store is a minimal interface for object-oriented archive storage.
//
// Keys are forward-slash separated paths relative to the store root.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put streams r into the named object, replacing any existing content.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the named object for reading.
	// The caller must close the returned ReadCloser when done.
	// If the object does not exist, an error wrapping os.ErrNotExist is returned.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the named object.
	// If the object does not exist, Delete returns nil (idempotent).
	Delete(ctx context.Context, key string) error

	// Exists reports whether the named object exists.
	Exists(ctx context.Context, key string) (bool, error)
}
