package btree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaorz/SLM-DB/internal/fs"
)

func encodeMeta(m meta) []byte { return append([]byte(nil), m[:]...) }

func decodeMeta(b []byte) (meta, error) {
	var m meta
	copy(m[:], b)
	return m, nil
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	tr := New[meta](4)
	for i := uint32(0); i < 20; i++ {
		var m meta
		m[0] = byte(i)
		require.NoError(t, tr.Insert(i, m, i+100))
	}

	path := filepath.Join(t.TempDir(), "snapshot.zst")
	require.NoError(t, tr.SaveSnapshot(fs.Default, path, encodeMeta))

	loaded, err := LoadSnapshot[meta](fs.Default, path, 4, decodeMeta)
	require.NoError(t, err)

	for i := uint32(0); i < 20; i++ {
		got, ok := loaded.Get(i)
		require.True(t, ok)
		assert.Equal(t, byte(i), got[0])
	}

	// The reloaded tree's generations round-trip too, so a subsequent Update
	// against the snapshotted file number still behaves like the original.
	var replacement meta
	replacement[0] = 0xFF
	ok, err := loaded.Update(5, 105, replacement, 200)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSnapshotFileIsCompressed(t *testing.T) {
	tr := New[meta](64)
	for i := uint32(0); i < 500; i++ {
		require.NoError(t, tr.Insert(i, meta{}, 0))
	}

	path := filepath.Join(t.TempDir(), "snapshot.zst")
	require.NoError(t, tr.SaveSnapshot(fs.Default, path, encodeMeta))

	info, err := os.Stat(path)
	require.NoError(t, err)
	// 500 records at 36 bytes each (12-byte header + 24-byte meta) is ~18KiB
	// raw; zstd over that much repetition should land well under half.
	assert.Less(t, info.Size(), int64(6000))
}

func TestLoadSnapshotRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zst")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot"), 0o644))

	_, err := LoadSnapshot[meta](fs.Default, path, 8, decodeMeta)
	assert.Error(t, err)
}

func TestSaveSnapshotPropagatesFaultyFSWriteError(t *testing.T) {
	tr := New[meta](8)
	for i := uint32(0); i < 50; i++ {
		require.NoError(t, tr.Insert(i, meta{}, 0))
	}

	ffs := fs.NewFaultyFS(fs.LocalFS{})
	ffs.SetLimit(16) // fail almost immediately

	path := filepath.Join(t.TempDir(), "snapshot.zst")
	err := tr.SaveSnapshot(ffs, path, encodeMeta)
	assert.Error(t, err)
}
