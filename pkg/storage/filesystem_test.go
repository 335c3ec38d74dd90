package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	root := t.TempDir()

	fs, err := NewFileSystemStore(root, "/blobs/")
	require.NoError(t, err)

	url, err := fs.Put(ctx, "ebooks/dune_1700000000000.epub", strings.NewReader("spice"), "application/epub+zip")
	require.NoError(t, err)
	assert.Equal(t, "/blobs/ebooks/dune_1700000000000.epub", url)

	data, err := os.ReadFile(filepath.Join(root, "ebooks", "dune_1700000000000.epub"))
	require.NoError(t, err)
	assert.Equal(t, "spice", string(data))

	info, err := fs.Stat(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.SizeBytes)

	_, err = fs.Put(ctx, "ebooks/dune_1700000000000.epub", strings.NewReader("again"), "")
	assert.True(t, errors.Is(err, ErrBlobExists))

	require.NoError(t, fs.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(root, "ebooks", "dune_1700000000000.epub"))
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	require.NoError(t, fs.Delete(ctx, url))

	entries, err := os.ReadDir(filepath.Join(root, "ebooks"))
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary upload files should be cleaned up")
}

func TestFileSystemStore_RejectsBadPaths(t *testing.T) {
	t.Parallel()
	ctx := testContext()

	fs, err := NewFileSystemStore(t.TempDir(), "/blobs")
	require.NoError(t, err)

	_, err = fs.Put(ctx, "../escape.txt", strings.NewReader("x"), "")
	require.Error(t, err)

	err = fs.Delete(ctx, "https://elsewhere.example.com/ebooks/a.epub")
	assert.True(t, errors.Is(err, ErrForeignURL))

	err = fs.Delete(ctx, "/blobs/../../etc/passwd")
	require.Error(t, err)
}
