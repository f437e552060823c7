// Package storage archives table snapshots in S3 compatible object storage.
//
// Before a sync pass writes to its target, the target rows read at pass start can be
// uploaded as a JSON object, so a bad sync can be inspected or undone by hand.
//
// # Client Interface
//
// The Client interface wraps the MinIO Go client and is mocked in core/storage/mocks.
//
// # Snapshots
//
//   - Archive: uploads prefix/pipeline/table/timestamp.json and prunes old snapshots.
//   - Latest: downloads the newest snapshot of a table.
//   - Prune: keeps only the newest snapshots of a table.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	archiver := storage.NewSnapshotArchiver(client, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Storage.Retain)
//	err = archiver.EnsureBucket(ctx, cfg.Storage.Region)
package storage
