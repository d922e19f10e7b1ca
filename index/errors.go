package index

import (
	"errors"
	"fmt"
)

// ErrIndexClosed is returned by AsyncInsert and AddQueue once Close has
// been called.
var ErrIndexClosed = errors.New("index: closed")

// ErrQueueNotEmpty is returned by AddQueue when the internal queue still
// holds operations from a previous batch, violating its precondition.
var ErrQueueNotEmpty = errors.New("index: queue not empty")

// ErrRangeUnsupported is returned by Range, which has no implementation —
// present only so the method exists for API symmetry with Get/Insert.
var ErrRangeUnsupported = errors.New("index: Range is not implemented")

// ErrReservedKey is returned when a producer attempts to enqueue the
// reserved close-sentinel key directly.
var ErrReservedKey = errors.New("index: key is reserved for internal use")

// translateError centralizes mapping from the backing tree's error taxonomy
// onto index-level sentinels. The backing tree in this module only fails on
// a negative chunk index, which a uint32 key can never produce, so this
// mostly exists as the seam a richer backing tree would plug into.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("index: %w", err)
}
