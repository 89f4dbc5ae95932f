// Package storage wraps the MinIO client used by the remote side.
//
// The Client interface only carries what remote enumeration needs: listing,
// stat and bucket notifications, plus the bucket checks used at startup.
// core/storage/mocks provides a testify mock for unit tests.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	exists, err := client.BucketExists(ctx, cfg.Storage.Bucket)
package storage
