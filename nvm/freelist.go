package nvm

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Freelist tracks reclaimed node slots inside an Arena as a compact bitmap
// rather than a Go slice of free offsets, so Erase on a long-lived skiplist
// does not grow unbounded host memory. Slots are caller-defined uint32
// indices (typically offset / recordSize), not raw byte offsets, since
// RoaringBitmap keys are 32 bits.
type Freelist struct {
	mu     sync.Mutex
	bitmap *roaring.Bitmap
}

// NewFreelist returns an empty Freelist.
func NewFreelist() *Freelist {
	return &Freelist{bitmap: roaring.New()}
}

// Release marks slot as free.
func (f *Freelist) Release(slot uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bitmap.Add(slot)
}

// Acquire removes and returns the lowest free slot, reporting false if the
// freelist is empty.
func (f *Freelist) Acquire() (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bitmap.IsEmpty() {
		return 0, false
	}
	slot := f.bitmap.Minimum()
	f.bitmap.Remove(slot)
	return slot, true
}

// Contains reports whether slot is currently marked free.
func (f *Freelist) Contains(slot uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bitmap.Contains(slot)
}

// Len returns the number of free slots tracked.
func (f *Freelist) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bitmap.GetCardinality()
}
