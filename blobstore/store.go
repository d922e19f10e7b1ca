package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for archiving immutable snapshot blobs: backing-tree
// snapshots and persistent-skiplist chain snapshots. It sits off the hot path —
// no Index or PersistentSkiplist operation blocks on it.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for writing. Its contents are only guaranteed
	// complete once Close returns; LocalStore creates the file, visible to
	// Open, immediately.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically in one call.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob returns ErrNotFound from
	// LocalStore and nil from MemoryStore and the minio store.
	Delete(ctx context.Context, name string) error
	// List returns the names of blobs whose name has the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to an archived snapshot blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// RangeReader is an optional interface for Blobs backed by stores that can
// stream a sub-range without reading the whole blob first (S3, MinIO).
type RangeReader interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
}

// WritableBlob is a handle to a blob being written. Data is not guaranteed to
// be visible to readers of the same name until Close returns.
type WritableBlob interface {
	io.Writer
	io.Closer
	// Sync flushes any buffered data to the backing store without closing it.
	Sync() error
}

// Mappable is an optional interface for Blobs that support zero-copy access
// to their full contents, e.g. a memory-mapped local file.
type Mappable interface {
	// Bytes returns the underlying byte slice.
	// The slice is valid until the Blob is closed.
	Bytes() ([]byte, error)
}
