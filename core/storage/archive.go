package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// ErrReportNotFound is returned when no archived report has the requested id.
var ErrReportNotFound = errors.New("report not found")

// ReportInfo describes one archived report.
type ReportInfo struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	Key          string    `json:"key" yaml:"key"`
	Size         int64     `json:"size" yaml:"size"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
}

// Archive stores run reports as JSON objects keyed by date and run id:
// <prefix>/YYYY/MM/DD/<run-id>.json.
type Archive struct {
	client Client
	bucket string
	prefix string
}

// NewArchive returns an archive writing to bucket under prefix.
func NewArchive(client Client, bucket, prefix string) *Archive {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "reports"
	}
	return &Archive{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a run started at started.
func (a *Archive) Key(runID string, started time.Time) string {
	return path.Join(a.prefix, started.UTC().Format("2006/01/02"), runID+".json")
}

// Bucket returns the bucket name.
func (a *Archive) Bucket() string {
	return a.bucket
}

// BucketExists reports whether the bucket exists.
func (a *Archive) BucketExists(ctx context.Context) (bool, error) {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return false, fmt.Errorf("check bucket %s: %w", a.bucket, err)
	}
	return exists, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.BucketExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Put writes report under the key for runID and returns the key.
func (a *Archive) Put(ctx context.Context, runID string, started time.Time, report any) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report %s: %w", runID, err)
	}
	key := a.Key(runID, started)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}
	return key, nil
}

// List returns archived reports, newest first. A positive limit caps the
// result.
func (a *Archive) List(ctx context.Context, limit int) ([]ReportInfo, error) {
	var out []ReportInfo
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: a.prefix + "/", Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list reports: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		out = append(out, ReportInfo{
			RunID:        strings.TrimSuffix(path.Base(obj.Key), ".json"),
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].Key > out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get decodes the report for runID into out.
func (a *Archive) Get(ctx context.Context, runID string, out any) error {
	reports, err := a.List(ctx, 0)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.RunID != runID {
			continue
		}
		obj, err := a.client.GetObject(ctx, a.bucket, r.Key, minio.GetObjectOptions{})
		if err != nil {
			return fmt.Errorf("download report %s: %w", r.Key, err)
		}
		defer func() { _ = obj.Close() }()
		if err := json.NewDecoder(obj).Decode(out); err != nil {
			return fmt.Errorf("decode report %s: %w", r.Key, err)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", runID, ErrReportNotFound)
}

// Prune deletes reports last modified before cutoff and returns how many
// were removed.
func (a *Archive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	reports, err := a.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, r := range reports {
		if !r.LastModified.Before(cutoff) {
			continue
		}
		if err := a.client.RemoveObject(ctx, a.bucket, r.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("remove report %s: %w", r.Key, err)
		}
		removed++
	}
	return removed, nil
}
