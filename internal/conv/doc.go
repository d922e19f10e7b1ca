// Package conv narrows the wide byte offsets nvm.Arena hands out down to
// the uint32 slot ids the RoaringBitmap-backed freelist indexes, with a
// bounds check instead of a silent truncating cast.
//
// A Arena can in principle grow past 4GiB of backing bytes, at which point
// an offset no longer fits in the freelist's uint32 slot space; callers
// that hit that case fall back to never reusing the slot (the node's
// memory is abandoned rather than miscounted) instead of wrapping around
// into a different, live node's slot.
package conv
