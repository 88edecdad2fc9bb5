// Package storage keeps files the user staged for submission until they are
// uploaded or discarded. A staged file survives a failed submit so the user
// can retry without choosing it again.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a staged object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Store is a flat key/value blob store.
type Store interface {
	// Put writes an object, replacing any existing one under key.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Open returns the object's content. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is present.
	Exists(ctx context.Context, key string) (bool, error)
}
