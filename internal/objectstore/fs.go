package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore stores objects as files under a base directory. Writes go through a
// temporary file and a rename, so a watcher on the directory never observes a
// partially written object.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at the given directory.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}

	return &FSStore{root: root}, nil
}

// Root returns the store's base directory.
func (s *FSStore) Root() string {
	return s.root
}

// Put writes one object atomically.
func (s *FSStore) Put(_ context.Context, key string, data []byte) error {
	target := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp object: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to write object: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp object: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("failed to publish object: %w", err)
	}

	return nil
}

// Get reads one object.
func (s *FSStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}

		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return data, nil
}
