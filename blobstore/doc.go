// Package blobstore provides a storage abstraction for the archival tier:
// compressed PersistentSkiplist chain snapshots and backing-tree dumps that
// have aged out of NVM and been shipped off to colder, cheaper storage.
//
// BlobStore is the interface for reading and writing named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, reading blobs back through nvm.Mapping
//   - s3.Store: Amazon S3, with range reads and multipart uploads
//   - minio.Store: any S3-compatible object store reachable via minio-go
//
// # Custom Implementations
//
// Implement the BlobStore interface to support other storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)            // open for reading
//	    Create(ctx, name) (WritableBlob, error)  // open for writing
//	    Put(ctx, name, data) error               // single-shot write
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// For cloud backends, implement RangeReader for efficient partial reads of
// large snapshot files:
//
//	type RangeReader interface {
//	    ReadRange(off, length int64) (io.ReadCloser, error)
//	}
package blobstore
