// Package fs abstracts the filesystem calls the backing-tree snapshot path
// (btree.SaveSnapshot/LoadSnapshot) makes, so it can be exercised against a
// filesystem that fails partway through a write instead of only ever
// succeeding. skiplist.SaveChain/LoadChain take a plain io.Writer/io.Reader
// and make no calls through this package.
//
// # Implementations
//
//   - [LocalFS]: production implementation backed by the os package
//   - [FaultyFS]: wraps another FileSystem and fails writes/syncs/closes
//     according to configured [Fault] rules, for deterministic tests of
//     what a crash mid-archival leaves behind
//
// # Usage
//
// Production code uses fs.Default (a [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
//
// A test that wants a snapshot write to fail partway through wraps it:
//
//	ffs := fs.NewFaultyFS(fs.LocalFS{})
//	ffs.SetLimit(1024) // fail once 1KiB has been written
//	err := tree.SaveSnapshot(ffs, path, encode)
//
// # Design notes
//
// This package has no context.Context parameters. Local filesystem calls
// are fast and not interruptible at the syscall level, so a context would
// add overhead without real cancellation. blobstore.Blob, fronting
// network object stores, takes a context for exactly that reason.
package fs
