package skiplist

import (
	"math/rand"

	slmdb "github.com/xiaorz/SLM-DB"
	"github.com/xiaorz/SLM-DB/nvm"
)

const (
	defaultMaxLevel      = 12
	defaultNodeChunkSize = 1 << 16
	defaultValueChunkSize = 1 << 20
)

type options struct {
	cmp            Comparator
	maxLevel       int
	rnd            *rand.Rand
	flusher        nvm.Flusher
	logger         *slmdb.Logger
	nodeChunkSize  int
	valueChunkSize int
}

// Option configures a PersistentSkiplist.
type Option func(*options)

// WithComparator overrides the default ByteComparator.
func WithComparator(cmp Comparator) Option {
	return func(o *options) {
		if cmp != nil {
			o.cmp = cmp
		}
	}
}

// WithMaxLevel bounds the number of skip levels a node can occupy.
func WithMaxLevel(maxLevel int) Option {
	return func(o *options) {
		if maxLevel > 0 {
			o.maxLevel = maxLevel
		}
	}
}

// WithRandSource injects a deterministic random source for RandomLevel,
// letting tests assert on the resulting level distribution.
func WithRandSource(rnd *rand.Rand) Option {
	return func(o *options) {
		if rnd != nil {
			o.rnd = rnd
		}
	}
}

// WithFlusher substitutes the cache-line flush primitive used to publish
// node and value writes. Both the node arena and the value arena share it.
func WithFlusher(f nvm.Flusher) Option {
	return func(o *options) {
		if f != nil {
			o.flusher = f
		}
	}
}

// WithLogger attaches a Logger for structural operations (Insert, Erase,
// chain persistence).
func WithLogger(logger *slmdb.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNodeChunkSize overrides the node arena's chunk size, in bytes.
func WithNodeChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.nodeChunkSize = size
		}
	}
}

// WithValueChunkSize overrides the value arena's chunk size, in bytes.
func WithValueChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.valueChunkSize = size
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		cmp:            ByteComparator{},
		maxLevel:       defaultMaxLevel,
		rnd:            rand.New(rand.NewSource(1)),
		flusher:        nvm.NoopFlusher{},
		logger:         slmdb.NoopLogger(),
		nodeChunkSize:  defaultNodeChunkSize,
		valueChunkSize: defaultValueChunkSize,
	}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
