package index

import (
	"fmt"

	"github.com/xiaorz/SLM-DB/btree"
	"github.com/xiaorz/SLM-DB/internal/fs"
)

// SaveSnapshot writes every key currently present in the backing tree to
// path via fsys, zstd-compressed. It takes no lock on the Index's producer
// path: the Runner and synchronous Insert/Update callers may keep mutating
// the tree concurrently, and the snapshot reflects whatever ForEach happens
// to observe, which is acceptable for an off-hot-path archival artifact
// rather than a point-in-time guarantee.
func (idx *Index) SaveSnapshot(fsys fs.FileSystem, path string) error {
	err := idx.tree.SaveSnapshot(fsys, path, func(m IndexMeta) []byte {
		return append([]byte(nil), m[:]...)
	})
	if err != nil {
		return fmt.Errorf("index: save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot rebuilds an Index from a file written by SaveSnapshot. The
// returned Index has no background Runner started; callers resume producer
// activity through the normal AsyncInsert/AddQueue path.
func LoadSnapshot(fsys fs.FileSystem, path string, opts ...Option) (*Index, error) {
	o := applyOptions(opts)

	tree, err := btree.LoadSnapshot[IndexMeta](fsys, path, o.chunkSize, decodeIndexMeta)
	if err != nil {
		return nil, fmt.Errorf("index: load snapshot: %w", err)
	}

	return newIndex(o, tree), nil
}

func decodeIndexMeta(b []byte) (IndexMeta, error) {
	var m IndexMeta
	if len(b) != MetaSize {
		return m, fmt.Errorf("index: snapshot record has %d bytes, want %d", len(b), MetaSize)
	}
	copy(m[:], b)
	return m, nil
}
