package nvm

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"
)

// ErrArenaFull is returned by Alloc when a chunk cannot accommodate a
// request and the Arena has no way to grow further (ChunkLimit reached).
var ErrArenaFull = errors.New("nvm: arena exhausted")

// ErrAlignment is returned by Alloc when size exceeds the configured
// chunk size, since a single record is never allowed to span chunks.
var ErrAlignment = errors.New("nvm: allocation larger than chunk size")

// Offset is a stable 64-bit handle to a record inside an Arena: the high
// bits name a chunk, the low bits name a byte offset within that chunk.
// Offsets remain valid and dereferenceable for the Arena's lifetime — unlike
// a Go pointer, a node never moves once allocated, which is what lets
// PersistentSkiplist store level-array entries as plain Offset words instead
// of chasing *Node pointers.
type Offset uint64

// NoOffset is the zero value, reserved to mean "no such node" the way a nil
// *Node would in a heap-allocated skiplist.
const NoOffset Offset = 0

type chunk struct {
	data []byte
	off  atomic.Uint64 // bump allocator cursor into data
	mm   *Mapping       // non-nil if this chunk owns an mmap region to Close
}

// Arena is a chunked bump allocator over byte ranges that stand in for NVM.
// Allocation never blocks and never moves an existing record: Alloc bumps an
// atomic cursor inside the current chunk with a CAS loop, and only takes a
// lock to append a brand new chunk once the current one is exhausted.
type Arena struct {
	chunkSize  int
	chunkBits  uint
	maxChunks  int
	flusher    Flusher
	newChunk   func(size int) (*Mapping, error)

	mu     sync.Mutex
	chunks []*chunk
}

// Option configures an Arena.
type Option func(*Arena)

// WithFlusher overrides the default NoopFlusher used to publish writes made
// through Arena.Flush.
func WithFlusher(f Flusher) Option {
	return func(a *Arena) {
		a.flusher = f
	}
}

// WithChunkLimit bounds the number of chunks the Arena will grow to before
// Alloc starts returning ErrArenaFull. Zero (the default) means unbounded.
func WithChunkLimit(n int) Option {
	return func(a *Arena) {
		a.maxChunks = n
	}
}

// WithChunkAllocator overrides how a new chunk's backing memory is obtained.
// The default allocates an anonymous mmap region per chunk, so every Arena
// exercises the same mmap path whether or not callers ever touch a
// file-backed Mapping directly.
func WithChunkAllocator(f func(size int) (*Mapping, error)) Option {
	return func(a *Arena) {
		a.newChunk = f
	}
}

// NewArena creates an Arena whose chunks are chunkSize bytes. chunkSize must
// be a power of two; it is rounded up to the next power of two otherwise.
func NewArena(chunkSize int, opts ...Option) *Arena {
	if chunkSize <= 0 {
		chunkSize = 1 << 20 // 1MiB
	}
	bitsNeeded := bits.Len(uint(chunkSize - 1))
	chunkSize = 1 << bitsNeeded

	a := &Arena{
		chunkSize: chunkSize,
		chunkBits: uint(bitsNeeded),
		flusher:   NoopFlusher{},
		newChunk: func(size int) (*Mapping, error) {
			return NewAnonymousMapping(size)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Alloc reserves size bytes and returns a stable Offset for them. The
// returned bytes are not zeroed beyond what the backing chunk already was
// when mapped (anonymous mmap pages are zero-filled by the kernel).
func (a *Arena) Alloc(size int) (Offset, error) {
	if size <= 0 {
		return NoOffset, fmt.Errorf("nvm: invalid allocation size %d", size)
	}
	if size > a.chunkSize {
		return NoOffset, ErrAlignment
	}

	for {
		idx, c := a.currentChunk()
		if c == nil {
			var err error
			idx, c, err = a.appendChunk(idx)
			if err != nil {
				return NoOffset, err
			}
		}

		for {
			cur := c.off.Load()
			next := cur + uint64(size)
			if next > uint64(len(c.data)) {
				break // chunk exhausted, fall through to append a new one
			}
			if c.off.CompareAndSwap(cur, next) {
				return a.encode(idx, cur), nil
			}
		}

		// current chunk full: append a fresh one (a no-op if another
		// goroutine already did) and retry against whatever is current.
		if _, _, err := a.appendChunk(idx); err != nil {
			return NoOffset, err
		}
	}
}

// Bytes returns the size-byte slice addressed by off. The returned slice
// aliases the Arena's backing memory; writes to it must be followed by a
// call to Flush before anything that publishes off becomes reachable.
func (a *Arena) Bytes(off Offset, size int) []byte {
	idx, within := a.decode(off)
	c := a.chunkAt(idx)
	if c == nil {
		return nil
	}
	return c.data[within : within+uint64(size)]
}

// Flush publishes writes made to b (a slice previously returned by Bytes)
// through the Arena's configured Flusher.
func (a *Arena) Flush(b []byte) error {
	return a.flusher.Flush(b)
}

// ApproximateMemoryUsage returns the number of bytes handed out via Alloc
// across all chunks (not counting unused tail space in the current chunk).
func (a *Arena) ApproximateMemoryUsage() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var total uint64
	for _, c := range a.chunks {
		total += c.off.Load()
	}
	return total
}

// Close unmaps every chunk's Mapping and returns the first error. A
// WithChunkAllocator function must return a non-nil Mapping: appendChunk
// takes the new chunk's bytes from it.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var firstErr error
	for _, c := range a.chunks {
		if c.mm == nil {
			continue
		}
		if err := c.mm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *Arena) encode(chunkIdx int, within uint64) Offset {
	return Offset(uint64(chunkIdx+1)<<a.chunkBits | within)
}

func (a *Arena) decode(off Offset) (chunkIdx int, within uint64) {
	mask := uint64(1)<<a.chunkBits - 1
	chunkIdx = int(uint64(off)>>a.chunkBits) - 1
	within = uint64(off) & mask
	return
}

func (a *Arena) currentChunk() (int, *chunk) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.chunks) == 0 {
		return -1, nil
	}
	return len(a.chunks) - 1, a.chunks[len(a.chunks)-1]
}

func (a *Arena) chunkAt(idx int) *chunk {
	a.mu.Lock()
	defer a.mu.Unlock()
	if idx < 0 || idx >= len(a.chunks) {
		return nil
	}
	return a.chunks[idx]
}

// appendChunk appends a fresh chunk if the last chunk is still the one at
// index after (-1 for none); otherwise another goroutine already appended
// one and that chunk is returned instead.
func (a *Arena) appendChunk(after int) (int, *chunk, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if last := len(a.chunks) - 1; last != after {
		return last, a.chunks[last], nil
	}
	if a.maxChunks > 0 && len(a.chunks) >= a.maxChunks {
		return -1, nil, ErrArenaFull
	}

	mm, err := a.newChunk(a.chunkSize)
	if err != nil {
		return -1, nil, fmt.Errorf("nvm: allocate chunk: %w", err)
	}
	c := &chunk{data: mm.Bytes(), mm: mm}
	a.chunks = append(a.chunks, c)
	return len(a.chunks) - 1, c, nil
}
