package skiplist

import (
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaorz/SLM-DB/nvm"
)

func newTestSkiplist(t *testing.T, opts ...Option) *PersistentSkiplist {
	t.Helper()
	s, err := Open(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSkiplistInsertFind(t *testing.T) {
	s := newTestSkiplist(t)

	require.NoError(t, s.Insert([]byte("b"), []byte("2")))
	require.NoError(t, s.Insert([]byte("a"), []byte("1")))
	require.NoError(t, s.Insert([]byte("c"), []byte("3")))

	v, err := s.Find([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	v, err = s.Find([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	_, err = s.Find([]byte("z"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSkiplistInsertReplacesExistingKey(t *testing.T) {
	s := newTestSkiplist(t)

	require.NoError(t, s.Insert([]byte("j"), []byte("before")))
	require.NoError(t, s.Insert([]byte("k"), []byte("v1")))
	require.NoError(t, s.Insert([]byte("l"), []byte("after")))
	require.NoError(t, s.Insert([]byte("k"), []byte("v2")))

	v, err := s.Find([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v, "Insert on an existing key must surface the newest value")
	assert.EqualValues(t, 3, s.Len(), "replacing a key must not grow the key count")

	// Neighbors are untouched by the replace.
	v, err = s.Find([]byte("j"))
	require.NoError(t, err)
	assert.Equal(t, []byte("before"), v)
	v, err = s.Find([]byte("l"))
	require.NoError(t, err)
	assert.Equal(t, []byte("after"), v)
}

func TestSkiplistInsertEmptyKeyRejected(t *testing.T) {
	s := newTestSkiplist(t)
	err := s.Insert(nil, []byte("v"))
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestSkiplistOrderedTraversalViaFindGreaterOrEqual(t *testing.T) {
	s := newTestSkiplist(t)

	keys := []string{"d", "b", "f", "a", "e", "c"}
	for _, k := range keys {
		require.NoError(t, s.Insert([]byte(k), []byte(k)))
	}

	var walked []string
	next := []byte("")
	for {
		k, _, err := s.FindGreaterOrEqual(next)
		if err != nil {
			break
		}
		walked = append(walked, string(k))
		next = append(k, 0)
	}

	expected := append([]string{}, keys...)
	sort.Strings(expected)
	assert.Equal(t, expected, walked)
}

func TestSkiplistFindGreaterOrEqualPastEnd(t *testing.T) {
	s := newTestSkiplist(t)
	require.NoError(t, s.Insert([]byte("a"), []byte("1")))

	_, _, err := s.FindGreaterOrEqual([]byte("z"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSkiplistErase(t *testing.T) {
	s := newTestSkiplist(t)

	require.NoError(t, s.Insert([]byte("a"), []byte("1")))
	require.NoError(t, s.Insert([]byte("b"), []byte("2")))
	require.NoError(t, s.Insert([]byte("c"), []byte("3")))

	require.NoError(t, s.Erase([]byte("b")))
	_, err := s.Find([]byte("b"))
	assert.ErrorIs(t, err, ErrNotFound)

	v, err := s.Find([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	v, err = s.Find([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)

	assert.EqualValues(t, 2, s.Len())
}

func TestSkiplistEraseMissingKey(t *testing.T) {
	s := newTestSkiplist(t)
	require.NoError(t, s.Insert([]byte("a"), []byte("1")))
	err := s.Erase([]byte("missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSkiplistEraseReleasesSlotForReuse(t *testing.T) {
	s := newTestSkiplist(t)

	require.NoError(t, s.Insert([]byte("a"), []byte("1")))
	before := s.nodes.ApproximateMemoryUsage()

	require.NoError(t, s.Erase([]byte("a")))
	require.NoError(t, s.Insert([]byte("b"), []byte("2")))

	after := s.nodes.ApproximateMemoryUsage()
	assert.Equal(t, before, after, "reused freelist slot should not grow the node arena")

	v, err := s.Find([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
}

func TestSkiplistRandomLevelBounded(t *testing.T) {
	s := newTestSkiplist(t, WithMaxLevel(4), WithRandSource(rand.New(rand.NewSource(42))))
	for i := 0; i < 1000; i++ {
		lvl := s.RandomLevel()
		assert.GreaterOrEqual(t, lvl, 1)
		assert.LessOrEqual(t, lvl, 4)
	}
}

func TestSkiplistFlushPrecedesPublish(t *testing.T) {
	base := make([]byte, 0)
	rec := nvm.NewRecordingFlusher(base)
	s := newTestSkiplist(t, WithFlusher(rec))

	require.NoError(t, s.Insert([]byte("a"), []byte("1")))
	assert.Greater(t, rec.Count(), 0, "insert should flush at least the new node")
}

func TestSkiplistConcurrentReadsDuringInsert(t *testing.T) {
	s := newTestSkiplist(t)
	require.NoError(t, s.Insert([]byte("seed"), []byte("0")))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_, _ = s.Find([]byte("seed"))
			}
		}
	}()

	for i := 0; i < 200; i++ {
		k := []byte{byte(i % 256), byte(i / 256)}
		require.NoError(t, s.Insert(k, k))
	}
	close(stop)
	wg.Wait()

	v, err := s.Find([]byte("seed"))
	require.NoError(t, err)
	assert.Equal(t, []byte("0"), v)
}

func TestSkiplistApproximateMemoryUsageGrows(t *testing.T) {
	s := newTestSkiplist(t)
	before := s.ApproximateMemoryUsage()
	require.NoError(t, s.Insert([]byte("a"), []byte("value-bytes")))
	after := s.ApproximateMemoryUsage()
	assert.Greater(t, after, before)
}
