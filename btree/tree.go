package btree

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// entry is the value stored at a key, plus the file-number generation used
// by Update's CAS check.
type entry[V any] struct {
	value      V
	fileNumber uint32
}

// chunk is one fixed-size page of the array. Once appended to a Tree's chunk
// list, a chunk's length never changes; only its slots' atomic pointers do.
type chunk[V any] struct {
	slots []atomic.Pointer[entry[V]]
}

// Tree is a chunked, copy-on-write array mapping uint32 keys to values of
// type V. Reads never block: Get and the lookup half of Update walk a
// snapshot of the chunk list and load slot pointers atomically. Growing the
// chunk list (adding a new chunk when a key falls past the current range)
// takes a lock; writing an existing slot does not.
type Tree[V any] struct {
	chunkSize int

	mu     sync.Mutex
	chunks atomic.Pointer[[]*chunk[V]]
}

// New creates a Tree whose backing array grows chunkSize keys at a time.
func New[V any](chunkSize int) *Tree[V] {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	t := &Tree[V]{chunkSize: chunkSize}
	empty := make([]*chunk[V], 0)
	t.chunks.Store(&empty)
	return t
}

// Get returns the value stored at key and whether it was present.
func (t *Tree[V]) Get(key uint32) (V, bool) {
	idx, within := t.locate(key)
	chunks := *t.chunks.Load()
	if idx >= len(chunks) {
		var zero V
		return zero, false
	}
	e := chunks[idx].slots[within].Load()
	if e == nil {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Insert stores value at key unconditionally, establishing fileNumber as the
// generation a subsequent Update must present to succeed.
func (t *Tree[V]) Insert(key uint32, value V, fileNumber uint32) error {
	idx, within := t.locate(key)
	c, err := t.ensureChunk(idx)
	if err != nil {
		return err
	}
	c.slots[within].Store(&entry[V]{value: value, fileNumber: fileNumber})
	return nil
}

// Update performs a CAS-style conditional write: it only replaces the value
// at key if the slot is currently present and its generation equals
// prevFileNumber, reporting false (without error) on a conflict or a
// missing key so callers can decide whether to retry.
func (t *Tree[V]) Update(key uint32, prevFileNumber uint32, value V, newFileNumber uint32) (bool, error) {
	idx, within := t.locate(key)
	c, err := t.ensureChunk(idx)
	if err != nil {
		return false, err
	}

	slot := &c.slots[within]
	for {
		old := slot.Load()
		if old == nil || old.fileNumber != prevFileNumber {
			return false, nil
		}
		next := &entry[V]{value: value, fileNumber: newFileNumber}
		if slot.CompareAndSwap(old, next) {
			return true, nil
		}
	}
}

// Delete removes the value at key, if present.
func (t *Tree[V]) Delete(key uint32) {
	idx, within := t.locate(key)
	chunks := *t.chunks.Load()
	if idx >= len(chunks) {
		return
	}
	chunks[idx].slots[within].Store(nil)
}

// ForEach walks every present key in ascending order, calling fn with its
// value and the generation (file number) it currently carries. It walks a
// snapshot of the chunk list taken once at the start, so concurrent Insert
// calls may or may not be observed, but never torn.
func (t *Tree[V]) ForEach(fn func(key uint32, value V, fileNumber uint32)) {
	chunks := *t.chunks.Load()
	for ci, c := range chunks {
		for si := range c.slots {
			e := c.slots[si].Load()
			if e == nil {
				continue
			}
			key := uint32(ci*t.chunkSize + si)
			fn(key, e.value, e.fileNumber)
		}
	}
}

func (t *Tree[V]) locate(key uint32) (idx int, within int) {
	return int(key) / t.chunkSize, int(key) % t.chunkSize
}

// ensureChunk returns the chunk at idx, growing the chunk list (copy-on-write)
// under t.mu if idx is not yet covered.
func (t *Tree[V]) ensureChunk(idx int) (*chunk[V], error) {
	if idx < 0 {
		return nil, fmt.Errorf("btree: negative chunk index %d", idx)
	}

	chunks := *t.chunks.Load()
	if idx < len(chunks) {
		return chunks[idx], nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	chunks = *t.chunks.Load()
	if idx < len(chunks) {
		return chunks[idx], nil
	}

	grown := make([]*chunk[V], idx+1)
	copy(grown, chunks)
	for i := len(chunks); i <= idx; i++ {
		grown[i] = &chunk[V]{slots: make([]atomic.Pointer[entry[V]], t.chunkSize)}
	}
	t.chunks.Store(&grown)
	return grown[idx], nil
}
