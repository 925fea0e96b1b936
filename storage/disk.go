package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// DiskStore keeps evidence files under a single directory. Paths recorded on
// evidence entries may carry URL prefixes; only the basename is used, which
// also keeps traversal out of delete requests.
type DiskStore struct {
	root string
}

// NewDiskStore creates the evidence directory if needed
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{root: root}, nil
}

// Delete removes one stored file. A missing file is not an error; the record
// is the source of truth and the blob may already be gone.
func (s *DiskStore) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Base(path)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Contains reports whether the store still holds the named file, used by
// tests to verify cascade deletion.
func (s *DiskStore) Contains(path string) bool {
	_, err := os.Stat(filepath.Join(s.root, filepath.Base(path)))
	return err == nil
}
