package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiskStoreDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	assert.NoError(t, err)

	assert.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), []byte("png"), 0o644))
	assert.True(t, store.Contains("shot.png"))

	assert.NoError(t, store.Delete(context.Background(), "shot.png"))
	assert.False(t, store.Contains("shot.png"))
}

func TestDiskStoreDeleteMissingFile(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	assert.NoError(t, err)

	assert.NoError(t, store.Delete(context.Background(), "never-stored.png"))
}

func TestDiskStoreDeleteStripsPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir)
	assert.NoError(t, err)

	assert.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), []byte("png"), 0o644))

	// url prefixes and traversal attempts reduce to the basename
	assert.NoError(t, store.Delete(context.Background(), "https://cdn.example.org/uploads/../shot.png"))
	assert.False(t, store.Contains("shot.png"))
}
