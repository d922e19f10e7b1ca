// Package skiplist implements PersistentSkiplist, an NVM-resident, doubly
// linked skiplist of arbitrary byte-string key/value pairs used as a sorted
// segment by the host database's write path. It is grounded in the
// LevelDB-derived original this module's Index was distilled from: a single
// writer under external synchronization, lock-free concurrent readers, and
// node records that live in an arena rather than on the Go heap so that a
// node's address is a stable, NVM-addressable offset rather than a pointer a
// garbage collector is free to never move but also never accounts for in
// terms of durability.
//
// Insert on an already-present key replaces it: the existing node is
// unlinked and its slot released before the new node is linked in at the
// same logical position, so next[0] stays strictly increasing and Find
// always surfaces the most recently inserted value for a key.
package skiplist
