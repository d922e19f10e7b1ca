// Package btree is a minimal concrete stand-in for the backing persistent
// tree an Index durably stores its key -> metadata mapping in. Its internal
// page layout is not the point — the real backing tree's algorithm is out
// of scope here — what Index needs from it is search, insert, and a
// conditional update it can use to implement optimistic concurrency
// between AsyncInsert batches and the Update path.
//
// Tree is a single-level, chunked, copy-on-write array indexed by key /
// chunkSize, in the shape of a sparse array rather than a balanced tree:
// keys are dense uint32s (row/file numbers), so a chunked array gives O(1)
// lookup without the rebalancing machinery a real B+-tree needs for
// arbitrary byte-string keys.
//
// SaveSnapshot/LoadSnapshot persist a Tree to a zstd-compressed file off the
// hot path, for periodic archival rather than crash recovery on every write.
package btree
