package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	slmdb "github.com/xiaorz/SLM-DB"
	"github.com/xiaorz/SLM-DB/btree"
	"github.com/xiaorz/SLM-DB/nvm"
	"github.com/xiaorz/SLM-DB/resource"
)

// closeSentinelKey is reserved for the internal poison KeyAndMeta pushed by
// Close; public producers are rejected if they try to use it directly.
const closeSentinelKey = math.MaxUint32

// Index is an ordered uint32 -> *IndexMeta map with durable publication and
// asynchronous batching through a single background consumer. Reads (Get)
// never take a lock; writes are serialized either synchronously (Insert,
// Update) or through the queue drained by the Runner goroutine.
type Index struct {
	tree           *btree.Tree[IndexMeta]
	logger         *slmdb.Logger
	flusher        nvm.Flusher
	controller     *resource.Controller
	drainChunkSize int

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []KeyAndMeta
	bgstarted bool
	closed    bool
	closeErr  error
	done      chan struct{}
}

// Open constructs an Index with an empty backing tree. The background
// Runner goroutine is not started until the first AsyncInsert or AddQueue
// call: a thread is created on first producer activity, not eagerly.
func Open(opts ...Option) *Index {
	o := applyOptions(opts)
	return newIndex(o, btree.New[IndexMeta](o.chunkSize))
}

func newIndex(o options, tree *btree.Tree[IndexMeta]) *Index {
	idx := &Index{
		tree:           tree,
		logger:         o.logger,
		flusher:        o.flusher,
		controller:     o.controller,
		drainChunkSize: o.drainChunkSize,
		queue:          make([]KeyAndMeta, 0, o.queueCapacityHint),
		done:           make(chan struct{}),
	}
	idx.cond = sync.NewCond(&idx.mu)
	return idx
}

// Get parses the leading ASCII decimal digits of keyBytes into a uint32
// (stopping at the first non-digit; no digits at all yields 0; a value
// past math.MaxUint32 saturates to it) and returns a copy of the metadata
// currently indexed under that key, if any. Get takes no lock: a read
// racing a concurrent Insert observes either the old or new metadata, never
// a torn one, because metadata publication is always preceded by a flush.
func (idx *Index) Get(ctx context.Context, keyBytes []byte) (IndexMeta, bool) {
	key := parseKey(keyBytes)
	meta, found := idx.tree.Get(key)
	idx.logger.LogGet(ctx, key, found, nil)
	return meta, found
}

func parseKey(b []byte) uint32 {
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint64(c-'0')
		if v > math.MaxUint32 {
			return math.MaxUint32
		}
	}
	return uint32(v)
}

// Insert unconditionally publishes meta under key: it flushes meta's bytes,
// then the key's bytes, then inserts into the backing tree — the ordering
// that guarantees the pointee is durable before any reader can observe the
// tree entry that locates it.
func (idx *Index) Insert(ctx context.Context, key uint32, meta *IndexMeta) error {
	if key == closeSentinelKey {
		return ErrReservedKey
	}
	if err := idx.publish(key, meta); err != nil {
		idx.logger.LogInsert(ctx, key, err)
		return err
	}
	err := idx.tree.Insert(key, *meta, fileNumberOf(meta))
	idx.logger.LogInsert(ctx, key, err)
	return translateError(err)
}

// Update delegates to the backing tree's conditional replace: it only
// applies if the tree's current entry for key still carries fileNumber
// prevFileNumber. A stale update (prevFileNumber mismatch) is dropped
// silently, matching the backing tree's contract — callers cannot tell a
// stale update from a successful one through the returned error alone by
// design; no second channel is available for that distinction. No flush is
// emitted here: the caller (or the async pipeline, at its enqueue point) is
// responsible for having flushed meta already.
func (idx *Index) Update(ctx context.Context, key uint32, prevFileNumber uint32, meta *IndexMeta) error {
	if key == closeSentinelKey {
		return ErrReservedKey
	}
	_, err := idx.tree.Update(key, prevFileNumber, *meta, fileNumberOf(meta))
	idx.logger.LogInsert(ctx, key, err)
	return translateError(err)
}

// publish flushes meta's bytes and then the key's bytes, in that order,
// before any backing-tree mutation makes either visible to a reader.
func (idx *Index) publish(key uint32, meta *IndexMeta) error {
	if meta == nil {
		return fmt.Errorf("index: nil meta")
	}
	if err := idx.flusher.Flush(meta[:]); err != nil {
		return translateError(err)
	}
	idx.logger.LogFlush(context.Background(), uint64(key), MetaSize)

	var keyBuf [4]byte
	binary.LittleEndian.PutUint32(keyBuf[:], key)
	if err := idx.flusher.Flush(keyBuf[:]); err != nil {
		return translateError(err)
	}
	idx.logger.LogFlush(context.Background(), uint64(key), len(keyBuf))
	return nil
}

// AsyncInsert enqueues op for the background Runner, starting it lazily on
// first call. meta is flushed here, at enqueue time, regardless of whether
// op carries a plain insert or a conditional update: the Runner's drain
// path applies both kinds of operation to the backing tree with no flush
// of its own, so the async pipeline's enqueue point is the only place left
// to discharge that obligation. If the queue transitions from empty to
// non-empty, the condition variable is signalled before op is appended —
// "signal first, then push," which the consumer's wait-then-recheck loop
// tolerates safely either way, but which this implementation keeps
// faithfully rather than reordering for no reason.
func (idx *Index) AsyncInsert(ctx context.Context, op KeyAndMeta) error {
	if op.Key == closeSentinelKey {
		return ErrReservedKey
	}
	if err := idx.publish(op.Key, op.Meta); err != nil {
		return err
	}

	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		idx.logger.LogAsyncInsert(ctx, op.Key, 0, ErrIndexClosed)
		return ErrIndexClosed
	}
	wasEmpty := len(idx.queue) == 0
	if wasEmpty {
		idx.cond.Signal()
	}
	idx.queue = append(idx.queue, op)
	depth := len(idx.queue)
	idx.ensureRunnerLocked()
	idx.mu.Unlock()

	idx.logger.LogAsyncInsert(ctx, op.Key, depth, nil)
	return nil
}

// AddQueue swaps batch into the internal queue wholesale, asserting the
// queue is currently empty (its precondition), starting the background
// Runner if needed, and signalling once rather than once per element. Like
// AsyncInsert, it flushes every operation's meta before enqueueing, and
// rejects a batch carrying the reserved close-sentinel key.
func (idx *Index) AddQueue(ctx context.Context, batch []KeyAndMeta) error {
	for _, op := range batch {
		if op.Key == closeSentinelKey {
			return ErrReservedKey
		}
		if err := idx.publish(op.Key, op.Meta); err != nil {
			return err
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrIndexClosed
	}
	if len(idx.queue) != 0 {
		return ErrQueueNotEmpty
	}

	idx.cond.Signal()
	idx.queue = batch
	idx.ensureRunnerLocked()
	return nil
}

// Range is an explicit non-operation, kept only for API symmetry with
// Get/Insert/Update. Callers must not rely on it.
func (idx *Index) Range(ctx context.Context, lo, hi uint32) error {
	return ErrRangeUnsupported
}

// ensureRunnerLocked starts the Runner goroutine on first producer
// activity. Callers must hold idx.mu.
func (idx *Index) ensureRunnerLocked() {
	if idx.bgstarted {
		return
	}
	idx.bgstarted = true
	go idx.run()
}

// run is the Runner's loop: wait for a non-empty queue, drain it fully
// under the lock (or in bounded chunks if a resource.Controller is
// configured), apply each operation to the backing tree, release, repeat.
// It recovers a panic only to log it before re-panicking, so a crash in the
// drain path is never silent but also never swallowed.
func (idx *Index) run() {
	defer close(idx.done)
	defer func() {
		if r := recover(); r != nil {
			idx.logger.ErrorContext(context.Background(), "runner panicked", "panic", r)
			panic(r)
		}
	}()

	for {
		idx.mu.Lock()
		for len(idx.queue) == 0 {
			idx.cond.Wait()
		}

		batch := idx.queue
		idx.queue = make([]KeyAndMeta, 0, cap(batch))
		stop := idx.drain(batch)
		idx.mu.Unlock()

		if stop {
			return
		}
	}
}

// drain applies every operation in batch to the backing tree, returning
// true once it has processed the poison sentinel Close pushes. Callers
// must hold idx.mu; by default neither drain nor its caller releases it
// mid-batch, draining fully under lock. When a resource.Controller is
// configured and the batch is large enough, drain instead processes it in
// chunks, acquiring a background-worker slot and an IO-rate-limiter
// allowance per chunk — an escape hatch, not a change to the default
// behavior. A chunk whose slot or allowance cannot be obtained (for
// instance, one larger than the limiter's burst) is logged and applied
// unthrottled, so no operation is dropped.
func (idx *Index) drain(batch []KeyAndMeta) (stop bool) {
	ctx := context.Background()

	if idx.controller == nil || len(batch) <= idx.drainChunkSize {
		return idx.drainChunk(ctx, batch)
	}

	for start := 0; start < len(batch); start += idx.drainChunkSize {
		end := start + idx.drainChunkSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]

		bgErr := idx.controller.AcquireBackground(ctx)
		if bgErr != nil {
			idx.logger.WarnContext(ctx, "runner drain chunk not throttled", "batch_size", len(chunk), "error", bgErr)
		}
		if err := idx.controller.AcquireIO(ctx, len(chunk)*MetaSize); err != nil {
			idx.logger.WarnContext(ctx, "runner drain chunk not throttled", "batch_size", len(chunk), "error", err)
		}
		if idx.drainChunk(ctx, chunk) {
			stop = true
		}
		if bgErr == nil {
			idx.controller.ReleaseBackground()
		}
	}
	return stop
}

func (idx *Index) drainChunk(ctx context.Context, batch []KeyAndMeta) (stop bool) {
	for _, op := range batch {
		if op.Key == closeSentinelKey {
			stop = true
			continue
		}

		var err error
		if op.PrevFileNumber == 0 {
			err = idx.tree.Insert(op.Key, *op.Meta, fileNumberOf(op.Meta))
		} else {
			_, err = idx.tree.Update(op.Key, op.PrevFileNumber, *op.Meta, fileNumberOf(op.Meta))
		}
		if err != nil {
			idx.logger.ErrorContext(ctx, "backing tree mutation failed, aborting", "key", op.Key, "error", err)
			panic(fmt.Errorf("index: backing tree mutation failed for key %d: %w", op.Key, err))
		}
	}
	idx.logger.LogRunnerDrain(ctx, len(batch), nil)
	return stop
}

// Close pushes the poison sentinel and waits for the Runner goroutine to
// exit, or for ctx to expire first. After Close returns successfully,
// AsyncInsert and AddQueue return ErrIndexClosed. Calling Close when the
// Runner was never started (no producer activity occurred) returns
// immediately.
func (idx *Index) Close(ctx context.Context) error {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return idx.closeErr
	}
	idx.closed = true
	started := idx.bgstarted
	if started {
		idx.queue = append(idx.queue, KeyAndMeta{Key: closeSentinelKey})
		idx.cond.Signal()
	}
	idx.mu.Unlock()

	if !started {
		idx.logger.LogClose(ctx, nil)
		return nil
	}

	select {
	case <-idx.done:
		idx.logger.LogClose(ctx, nil)
		return nil
	case <-ctx.Done():
		idx.mu.Lock()
		idx.closeErr = ctx.Err()
		idx.mu.Unlock()
		idx.logger.LogClose(ctx, ctx.Err())
		return ctx.Err()
	}
}
