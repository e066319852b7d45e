// Package storage provides the persistent key/value collaborators the cache
// mirrors itself into.
package storage

import (
	"context"
	"fmt"
)

// Storage is a namespaced key/value store. Get reports a missing key with
// ok == false and a nil error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Error indicates a storage operation failure.
type Error struct {
	Op    string
	Key   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage error: %s %q: %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("storage error: %s %q", e.Op, e.Key)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
