package skiplist

import (
	"errors"
	"fmt"

	"github.com/xiaorz/SLM-DB/nvm"
)

// ErrNotFound is returned by Find when no node matches the requested key.
var ErrNotFound = errors.New("skiplist: key not found")

// ErrEmptyKey is returned when Insert is called with a zero-length key; the
// level-0 chain's head/tail sentinels rely on the empty key being reserved.
var ErrEmptyKey = errors.New("skiplist: key must not be empty")

// ErrCorruptChain is returned by LoadChain when the serialized chain is
// truncated or its records are not in ascending key order.
var ErrCorruptChain = errors.New("skiplist: corrupt chain")

// translateError maps an underlying nvm package error onto a skiplist-level
// error callers can reasonably act on.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, nvm.ErrArenaFull) {
		return fmt.Errorf("skiplist: %w", err)
	}
	return err
}
