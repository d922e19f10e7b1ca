package skiplist

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/xiaorz/SLM-DB/nvm"
)

// Node record layout, packed so every 8-byte field used as a lock-free
// synchronization point (prev, and each entry of next) sits at an 8-byte
// aligned offset. The fixed fields (key/value location, level) are written
// once before the node is linked into the list and never mutated again, so
// they need no atomic access of their own — the atomic write that links the
// node acts as their publish.
const (
	offPrev = 0
	offNext = 8 // maxLevel * 8 bytes follow
)

func offKeyOffset(maxLevel int) int { return offNext + maxLevel*8 }
func offKeyLen(maxLevel int) int    { return offKeyOffset(maxLevel) + 8 }
func offValOffset(maxLevel int) int { return offKeyLen(maxLevel) + 4 }
func offValLen(maxLevel int) int    { return offValOffset(maxLevel) + 8 }
func offLevel(maxLevel int) int     { return offValLen(maxLevel) + 4 }

// nodeSize returns the arena record size for a node with the given maxLevel,
// rounded up to a multiple of 8 so that consecutive records in a chunk stay
// 8-byte aligned for the atomic next/prev words.
func nodeSize(maxLevel int) int {
	raw := offLevel(maxLevel) + 4
	return (raw + 7) &^ 7
}

// node is a view into a fixed-size byte record living inside an nvm.Arena.
// It never holds data itself; every accessor reads or writes through the
// arena slice backing it.
type node struct {
	off   nvm.Offset
	bytes []byte
	maxLevel int
}

func newNodeView(off nvm.Offset, b []byte, maxLevel int) node {
	return node{off: off, bytes: b, maxLevel: maxLevel}
}

func (n node) loadNext(level int) nvm.Offset {
	p := (*uint64)(unsafe.Pointer(&n.bytes[offNext+level*8]))
	return nvm.Offset(atomic.LoadUint64(p))
}

func (n node) storeNext(level int, off nvm.Offset) {
	p := (*uint64)(unsafe.Pointer(&n.bytes[offNext+level*8]))
	atomic.StoreUint64(p, uint64(off))
}

func (n node) casNext(level int, old, new nvm.Offset) bool {
	p := (*uint64)(unsafe.Pointer(&n.bytes[offNext+level*8]))
	return atomic.CompareAndSwapUint64(p, uint64(old), uint64(new))
}

func (n node) loadPrev() nvm.Offset {
	p := (*uint64)(unsafe.Pointer(&n.bytes[offPrev]))
	return nvm.Offset(atomic.LoadUint64(p))
}

func (n node) storePrev(off nvm.Offset) {
	p := (*uint64)(unsafe.Pointer(&n.bytes[offPrev]))
	atomic.StoreUint64(p, uint64(off))
}

func (n node) setKey(off nvm.Offset, length uint32) {
	binary.LittleEndian.PutUint64(n.bytes[offKeyOffset(n.maxLevel):], uint64(off))
	binary.LittleEndian.PutUint32(n.bytes[offKeyLen(n.maxLevel):], length)
}

func (n node) keyLoc() (nvm.Offset, uint32) {
	off := binary.LittleEndian.Uint64(n.bytes[offKeyOffset(n.maxLevel):])
	length := binary.LittleEndian.Uint32(n.bytes[offKeyLen(n.maxLevel):])
	return nvm.Offset(off), length
}

func (n node) setValue(off nvm.Offset, length uint32) {
	binary.LittleEndian.PutUint64(n.bytes[offValOffset(n.maxLevel):], uint64(off))
	binary.LittleEndian.PutUint32(n.bytes[offValLen(n.maxLevel):], length)
}

func (n node) valueLoc() (nvm.Offset, uint32) {
	off := binary.LittleEndian.Uint64(n.bytes[offValOffset(n.maxLevel):])
	length := binary.LittleEndian.Uint32(n.bytes[offValLen(n.maxLevel):])
	return nvm.Offset(off), length
}

func (n node) setLevel(level int) {
	binary.LittleEndian.PutUint32(n.bytes[offLevel(n.maxLevel):], uint32(level))
}

func (n node) nodeLevel() int {
	return int(binary.LittleEndian.Uint32(n.bytes[offLevel(n.maxLevel):]))
}
