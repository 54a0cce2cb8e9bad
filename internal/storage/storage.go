package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by Get for a missing key. Head and Delete
// never return it: absence is a valid answer for both.
var ErrObjectNotFound = errors.New("object not found")

type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Head(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
