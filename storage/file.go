package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File keeps each key in its own file under a directory. Writes go through
// a temporary file and a rename, so a crash never leaves a half-written
// value behind.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile creates a file store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, &Error{Op: "mkdir", Key: dir, Cause: err}
	}
	return &File{dir: filepath.Clean(dir)}, nil
}

// Get reads a value.
func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, &Error{Op: "get", Key: key, Cause: err}
	}
	return string(data), true, nil
}

// Set writes a value atomically.
func (f *File) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return &Error{Op: "set", Key: key, Cause: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return &Error{Op: "set", Key: key, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &Error{Op: "set", Key: key, Cause: err}
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return &Error{Op: "set", Key: key, Cause: err}
	}
	return nil
}

// Remove deletes a value. Removing a missing key is not an error.
func (f *File) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "remove", Key: key, Cause: err}
	}
	return nil
}

// path maps a key to a file name that is safe on every platform.
func (f *File) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}

var _ Storage = (*File)(nil)
