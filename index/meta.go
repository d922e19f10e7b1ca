package index

import "encoding/binary"

// MetaSize is the fixed size of an IndexMeta record: a 4-byte file number,
// a 4-byte length, an 8-byte offset, and an 8-byte tail reserved for caller
// extension.
const MetaSize = 24

// IndexMeta is an opaque, fixed-size metadata record locating the latest
// value of a key inside the host database's on-NVM data files. The index
// package treats it as an undifferentiated byte block — callers define and
// own whatever typed accessors they need over it.
type IndexMeta [MetaSize]byte

const metaOffFileNumber = 0

// fileNumberOf reads the file-number field IndexMeta reserves at a known
// offset. This is the one place the package looks inside an IndexMeta: the
// concrete backing tree needs an integer witness for Update's CAS check,
// and the only place that witness can come from is the record the caller
// already flushed. Every other operation treats IndexMeta as opaque.
func fileNumberOf(m *IndexMeta) uint32 {
	if m == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(m[metaOffFileNumber:])
}

// KeyAndMeta is a queued index operation. A PrevFileNumber of zero marks an
// unconditional insert; any other value marks a conditional update that
// only applies if the tree's currently indexed metadata for Key still
// carries that file number.
type KeyAndMeta struct {
	Key            uint32
	PrevFileNumber uint32
	Meta           *IndexMeta
}
