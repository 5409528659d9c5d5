package repository

import (
	"context"
	"errors"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey marks a key that points outside the store.
	ErrInvalidKey = errors.New("invalid key")
)

// JobStore gives read-only access to the files of grading jobs: the master
// part, the student submissions and any pre-computed extraction documents.
// Keys are slash separated and relative to the store root.
type JobStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key under prefix, recursively, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Ping(ctx context.Context) error
	Provider() string
}
