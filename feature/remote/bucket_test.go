package remote

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"
)

// memBucket is an in-memory storage.Client listing with "/" delimiters.
type memBucket struct {
	mu      sync.Mutex
	objects map[string]minio.ObjectInfo
}

func newMemBucket() *memBucket {
	return &memBucket{objects: make(map[string]minio.ObjectInfo)}
}

func (b *memBucket) put(key string, size int64, nodeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info := minio.ObjectInfo{
		Key:          key,
		Size:         size,
		ETag:         `"etag-` + key + `"`,
		LastModified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if nodeID != "" {
		info.UserMetadata = minio.StringMap{"X-Amz-Meta-Node-Id": nodeID}
	}
	b.objects[key] = info
}

func (b *memBucket) delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
}

func (b *memBucket) BucketExists(context.Context, string) (bool, error) { return true, nil }

func (b *memBucket) MakeBucket(context.Context, string, minio.MakeBucketOptions) error { return nil }

func (b *memBucket) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool)
	var out []minio.ObjectInfo
	for key, info := range b.objects {
		if !strings.HasPrefix(key, opts.Prefix) {
			continue
		}
		rest := key[len(opts.Prefix):]
		if i := strings.Index(rest, "/"); i >= 0 && !opts.Recursive {
			p := opts.Prefix + rest[:i+1]
			if !seen[p] {
				seen[p] = true
				out = append(out, minio.ObjectInfo{Key: p})
			}
			continue
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(x, y minio.ObjectInfo) int { return strings.Compare(x.Key, y.Key) })

	ch := make(chan minio.ObjectInfo, len(out))
	for _, info := range out {
		ch <- info
	}
	close(ch)
	return ch
}

func (b *memBucket) StatObject(_ context.Context, _ string, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info, ok := b.objects[key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: minio.NoSuchKey, StatusCode: 404, Key: key}
	}
	// Stat reports metadata without the x-amz-meta- prefix.
	if id, ok := info.UserMetadata["X-Amz-Meta-Node-Id"]; ok {
		info.UserMetadata = minio.StringMap{"Node-Id": id}
	}
	return info, nil
}

func (b *memBucket) ListenBucketNotification(context.Context, string, string, string, []string) <-chan notification.Info {
	ch := make(chan notification.Info)
	close(ch)
	return ch
}
