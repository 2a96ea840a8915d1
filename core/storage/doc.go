// Package storage archives run reports in object storage.
//
// It wraps the MinIO Go client behind the Client interface so the archive
// can be tested against core/storage/mocks. Both AWS S3 and self-hosted
// MinIO work.
//
// # Layout
//
// Archive writes one JSON object per run:
//
//	<prefix>/YYYY/MM/DD/<run-id>.json
//
// List returns reports newest first, Get finds a report by run id, and Prune
// removes reports older than a cutoff.
//
// # Usage
//
//	client, err := storage.NewClient(cfg)
//	archive := storage.NewArchive(client, cfg.Bucket, cfg.Prefix)
//	key, err := archive.Put(ctx, summary.RunID, summary.Started, summary)
package storage
