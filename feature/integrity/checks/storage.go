package checks

import (
	"context"
	"fmt"

	"table-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// StorageReport is the state of the snapshot archive.
type StorageReport struct {
	Bucket    string `json:"bucket"`
	Exists    bool   `json:"exists"`
	Snapshots int    `json:"snapshots"`
	Status    string `json:"status"` // "ok", "missing"
}

// CheckStorage reports whether the snapshot bucket exists and counts the snapshots
// stored under prefix.
func CheckStorage(ctx context.Context, client storage.Client, bucket, prefix string) (*StorageReport, error) {
	report := &StorageReport{Bucket: bucket, Status: "missing"}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return report, nil
	}
	report.Exists = true
	report.Status = "ok"

	opts := minio.ListObjectsOptions{Prefix: prefix + "/", Recursive: true}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", obj.Err)
		}
		report.Snapshots++
	}
	return report, nil
}

// FixStorage creates the snapshot bucket.
func FixStorage(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger) error {
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	logger.Info("Created missing bucket", zap.String("bucket", bucket))
	return nil
}
