// Package blob provides object storage for the ETL: a byte-level Backend
// (local directory or S3), a resilient decorator, and Bucket, which reads
// and writes tabular frames.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested key does not exist. An empty
// object is not ErrNotFound.
var ErrNotFound = errors.New("object not found")

// Backend is addressable byte storage.
type Backend interface {
	// List returns the keys starting with prefix in ascending order. No
	// match is an empty slice, not an error.
	List(ctx context.Context, prefix string) ([]string, error)
	// Get returns the object's bytes or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or replaces the object at key.
	Put(ctx context.Context, key string, data []byte) error
	// String describes the backend for log lines.
	String() string
}
