// Package s3 provides an S3 implementation of the blobstore.BlobStore
// interface, used as the archival tier for PersistentSkiplist chain
// snapshots once they age out of NVM.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion("us-east-1"))
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "slm-db/chains/")
//
//	var buf bytes.Buffer
//	_ = list.SaveChain(&buf)
//	_ = store.Put(ctx, "chain-000123.lz4", buf.Bytes())
//
// # Features
//
//   - Range reads for efficient partial fetches
//   - Multipart uploads for large snapshots
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
