package blobstore

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutOpenReadAt(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "snapshots/chain-1", []byte("hello world")))

	blob, err := store.Open(ctx, "snapshots/chain-1")
	require.NoError(t, err)
	defer blob.Close()

	assert.EqualValues(t, len("hello world"), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreCreateWritesThroughFile(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	wb, err := store.Create(ctx, "out")
	require.NoError(t, err)
	_, err = io.WriteString(wb, "payload")
	require.NoError(t, err)
	require.NoError(t, wb.Sync())
	require.NoError(t, wb.Close())

	blob, err := store.Open(ctx, "out")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 7)
	_, err = blob.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(buf))
}

func TestLocalStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store := NewLocalStore(root)

	require.NoError(t, store.Put(ctx, "a/one", []byte("1")))
	require.NoError(t, store.Put(ctx, "a/two", []byte("2")))
	require.NoError(t, store.Put(ctx, "b/three", []byte("3")))

	names, err := store.List(ctx, "a/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/one", "a/two"}, names)

	require.NoError(t, store.Delete(ctx, "a/one"))
	_, err = store.Open(ctx, "a/one")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(ctx, filepath.Join("nonexistent"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreEmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "empty", nil))
	blob, err := store.Open(ctx, "empty")
	require.NoError(t, err)
	defer blob.Close()
	assert.EqualValues(t, 0, blob.Size())
}
