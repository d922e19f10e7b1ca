package index

import (
	slmdb "github.com/xiaorz/SLM-DB"
	"github.com/xiaorz/SLM-DB/nvm"
	"github.com/xiaorz/SLM-DB/resource"
)

const defaultQueueCapacityHint = 64

type options struct {
	logger             *slmdb.Logger
	flusher            nvm.Flusher
	queueCapacityHint  int
	chunkSize          int
	controller         *resource.Controller
	drainChunkSize     int
}

// Option configures an Index at construction.
type Option func(*options)

// WithLogger attaches a Logger for Get/Insert/AsyncInsert/Runner events.
func WithLogger(logger *slmdb.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithFlusher substitutes the cache-line flush primitive Insert uses to
// publish metadata and key bytes before the backing tree sees them.
func WithFlusher(f nvm.Flusher) Option {
	return func(o *options) {
		if f != nil {
			o.flusher = f
		}
	}
}

// WithQueueCapacityHint preallocates the internal queue's backing array,
// avoiding reallocation churn for producers that enqueue in bursts of a
// known rough size.
func WithQueueCapacityHint(hint int) Option {
	return func(o *options) {
		if hint > 0 {
			o.queueCapacityHint = hint
		}
	}
}

// WithChunkSize sets the backing tree's chunk size, in keys.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithResourceController attaches a resource.Controller the Runner consults
// before draining a batch larger than its chunking threshold, bounding
// concurrent background work and optionally throttling IO. Without one, the
// Runner drains every batch fully under the lock.
func WithResourceController(c *resource.Controller) Option {
	return func(o *options) {
		if c != nil {
			o.controller = c
		}
	}
}

// WithDrainChunkSize sets the batch size above which the Runner, when a
// resource.Controller is configured, drains in bounded chunks rather than
// all at once.
func WithDrainChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.drainChunkSize = size
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger:            slmdb.NoopLogger(),
		flusher:           nvm.NoopFlusher{},
		queueCapacityHint: defaultQueueCapacityHint,
		chunkSize:         4096,
		drainChunkSize:    4096,
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
