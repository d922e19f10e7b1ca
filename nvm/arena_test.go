package nvm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocWithinChunk(t *testing.T) {
	a := NewArena(4096)
	defer a.Close()

	off1, err := a.Alloc(64)
	require.NoError(t, err)
	assert.NotEqual(t, NoOffset, off1)

	off2, err := a.Alloc(64)
	require.NoError(t, err)
	assert.NotEqual(t, off1, off2)

	b1 := a.Bytes(off1, 64)
	b2 := a.Bytes(off2, 64)
	require.Len(t, b1, 64)
	require.Len(t, b2, 64)

	b1[0] = 0xAB
	assert.Equal(t, byte(0xAB), a.Bytes(off1, 64)[0])
	assert.Zero(t, b2[0])
}

func TestArenaGrowsAcrossChunks(t *testing.T) {
	a := NewArena(128)
	defer a.Close()

	var offsets []Offset
	for i := 0; i < 10; i++ {
		off, err := a.Alloc(32)
		require.NoError(t, err)
		offsets = append(offsets, off)
	}

	for i, off := range offsets {
		b := a.Bytes(off, 32)
		require.Len(t, b, 32)
		b[0] = byte(i)
	}
	for i, off := range offsets {
		assert.Equal(t, byte(i), a.Bytes(off, 32)[0])
	}
	assert.GreaterOrEqual(t, a.ApproximateMemoryUsage(), uint64(10*32))
}

func TestArenaAllocTooLarge(t *testing.T) {
	a := NewArena(128)
	defer a.Close()

	_, err := a.Alloc(256)
	assert.ErrorIs(t, err, ErrAlignment)
}

func TestArenaChunkLimit(t *testing.T) {
	a := NewArena(64, WithChunkLimit(1))
	defer a.Close()

	_, err := a.Alloc(64)
	require.NoError(t, err)

	_, err = a.Alloc(64)
	assert.ErrorIs(t, err, ErrArenaFull)
}

func TestArenaConcurrentAlloc(t *testing.T) {
	a := NewArena(1 << 16)
	defer a.Close()

	const n = 500
	offs := make([]Offset, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			off, err := a.Alloc(16)
			require.NoError(t, err)
			offs[i] = off
		}(i)
	}
	wg.Wait()

	seen := make(map[Offset]bool, n)
	for _, off := range offs {
		assert.False(t, seen[off], "offset handed out twice: %v", off)
		seen[off] = true
	}
}

func TestArenaFlushRecordsRange(t *testing.T) {
	a := NewArena(4096)
	defer a.Close()

	off, err := a.Alloc(32)
	require.NoError(t, err)

	b := a.Bytes(off, 32)
	copy(b, []byte("hello"))

	rec := NewRecordingFlusher(nil)
	a.flusher = rec
	require.NoError(t, a.Flush(b))
	assert.Equal(t, 1, rec.Count())
	assert.Equal(t, 32, rec.Ranges()[0].Length)
}
