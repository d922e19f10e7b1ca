// Package index implements Index, an ordered uint32 -> *IndexMeta map
// backed by a minimal concrete btree.Tree, with durable publication on
// every Insert and asynchronous batching through a single background
// consumer goroutine (the Runner). It is the secondary index half of the
// NVM-resident store this module implements; the sorted-segment half lives
// in package skiplist.
//
// SaveSnapshot/LoadSnapshot archive the backing tree to a file off the hot
// path, for periodic durability rather than per-write persistence.
package index
