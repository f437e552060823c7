package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"

	"table-sync/core/reconcile"

	"github.com/minio/minio-go/v7"
)

// Snapshot is the archived copy of a table taken before a sync pass wrote to it.
type Snapshot struct {
	Pipeline string          `json:"pipeline"`
	Table    string          `json:"table"`
	TakenAt  time.Time       `json:"taken_at"`
	Rows     []reconcile.Row `json:"rows"`
}

// SnapshotArchiver stores table snapshots as JSON objects.
// Objects are named prefix/pipeline/table/timestamp.json. When retain is positive,
// only the newest retain snapshots of each table are kept.
type SnapshotArchiver struct {
	client Client
	bucket string
	prefix string
	retain int
	now    func() time.Time
}

// NewSnapshotArchiver creates an archiver writing to bucket under prefix.
func NewSnapshotArchiver(client Client, bucket, prefix string, retain int) *SnapshotArchiver {
	return &SnapshotArchiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		retain: retain,
		now:    time.Now,
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (a *SnapshotArchiver) EnsureBucket(ctx context.Context, region string) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Archive uploads a snapshot of rows.
func (a *SnapshotArchiver) Archive(ctx context.Context, pipeline, table string, rows []reconcile.Row) error {
	snap := Snapshot{Pipeline: pipeline, Table: table, TakenAt: a.now().UTC(), Rows: rows}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := a.objectKey(pipeline, table, snap.TakenAt)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}
	if a.retain > 0 {
		return a.Prune(ctx, pipeline, table, a.retain)
	}
	return nil
}

func (a *SnapshotArchiver) list(ctx context.Context, pipeline, table string) ([]string, error) {
	dir := a.objectDir(pipeline, table) + "/"
	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: dir, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Prune removes all but the newest keep snapshots of a pipeline table.
func (a *SnapshotArchiver) Prune(ctx context.Context, pipeline, table string, keep int) error {
	keys, err := a.list(ctx, pipeline, table)
	if err != nil {
		return err
	}
	if len(keys) <= keep {
		return nil
	}
	stale := keys[:len(keys)-keep]

	objectsCh := make(chan minio.ObjectInfo, len(stale))
	for _, key := range stale {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	// The channel must be drained so the remover goroutine can finish.
	var errs []error
	for rErr := range a.client.RemoveObjects(ctx, a.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("failed to remove snapshot %s: %w", rErr.ObjectName, rErr.Err))
	}
	return errors.Join(errs...)
}

// Latest downloads the most recent snapshot of a pipeline table.
func (a *SnapshotArchiver) Latest(ctx context.Context, pipeline, table string) (*Snapshot, error) {
	keys, err := a.list(ctx, pipeline, table)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no snapshot for %s/%s", pipeline, table)
	}
	latest := keys[len(keys)-1]

	body, err := a.client.GetObject(ctx, a.bucket, latest, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", latest, err)
	}
	defer body.Close()

	var snap Snapshot
	if err := json.NewDecoder(body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", latest, err)
	}
	return &snap, nil
}

func (a *SnapshotArchiver) objectDir(pipeline, table string) string {
	return path.Join(a.prefix, safeSegment(pipeline), safeSegment(table))
}

func (a *SnapshotArchiver) objectKey(pipeline, table string, at time.Time) string {
	return a.objectDir(pipeline, table) + "/" + at.Format("20060102T150405.000Z") + ".json"
}

// safeSegment keeps table labels such as "doc/table" or "id!Sheet" in one path segment.
func safeSegment(s string) string {
	return strings.NewReplacer("/", "_", "!", "_", " ", "_").Replace(s)
}

var _ reconcile.Archiver = (*SnapshotArchiver)(nil)
