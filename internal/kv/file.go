package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File implements Store with one document per key under a root directory.
// Saves go through a temp file plus rename so readers never observe a
// partially written payload.
type File struct {
	root string
}

// NewFile creates the root directory if needed and returns a file store.
func NewFile(root string) (*File, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("kv: file root required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create kv root: %w", err)
	}
	return &File{root: root}, nil
}

// Driver returns the backend identifier.
func (f *File) Driver() Driver { return DriverFile }

// Root returns the configured root directory.
func (f *File) Root() string { return f.root }

func (f *File) path(key string) (string, error) {
	cleaned := filepath.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.Contains(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("kv: invalid key %q", key)
	}
	return filepath.Join(f.root, cleaned+".json"), nil
}

// Load reads the payload stored under key.
func (f *File) Load(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return payload, nil
}

// Save writes the payload under key atomically.
func (f *File) Save(_ context.Context, key string, payload []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Delete removes the payload under key. Deleting an absent key is a no-op.
func (f *File) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
