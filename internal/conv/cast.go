package conv

import (
	"fmt"
	"math"
)

// Uint64ToUint32 narrows an arena offset to a freelist slot id, erroring
// instead of truncating when the offset no longer fits in 32 bits.
func Uint64ToUint32(v uint64) (uint32, error) {
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("conv: offset %d does not fit in a uint32 freelist slot", v)
	}
	return uint32(v), nil
}
