package checks

import (
	"context"
	"fmt"
	"strings"

	"treesync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// BucketReport is the result of a bucket check.
type BucketReport struct {
	Bucket string `json:"bucket"`
	Exists bool   `json:"exists"`
	// Roots counts the top-level prefixes under the configured prefix.
	Roots int `json:"roots"`
}

// CheckBucket reports whether the mirrored bucket exists and how many sync
// roots it holds under prefix.
func CheckBucket(ctx context.Context, client storage.Client, bucket, prefix string) (*BucketReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report := &BucketReport{Bucket: bucket, Exists: exists}
	if !exists {
		return report, nil
	}

	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	for info := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list roots: %w", info.Err)
		}
		if strings.HasSuffix(info.Key, "/") {
			report.Roots++
		}
	}
	return report, nil
}

// FixBucket creates the bucket.
func FixBucket(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger) error {
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
		return err
	}
	logger.Info("Created missing bucket", zap.String("bucket", bucket))
	return nil
}
