// Package nvm emulates byte-addressable non-volatile memory on top of a
// memory-mapped file, and provides the arena allocator that PersistentSkiplist
// nodes and Index metadata records live in.
//
// Real NVM (Intel Optane-class hardware) exposes a load/store-addressable
// region that survives power loss once a cache-line flush (clflush/clwb) plus
// a store fence has retired. This package stands in for that hardware with an
// mmap-ed, msync-flushed region: Mapping is the region, Arena is the bump
// allocator carving fixed-layout node records out of it, and Flusher is the
// publication-flush primitive every write to those records must go through
// before the pointer that makes them reachable is itself published.
package nvm
