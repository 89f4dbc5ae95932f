package remote

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7/pkg/notification"
	"go.uber.org/zap"

	"treesync/core/reconcile"
)

var notificationEvents = []string{
	string(notification.ObjectCreatedAll),
	string(notification.ObjectRemovedAll),
}

// Notifications turns bucket notifications into change batches.
type Notifications struct {
	source *Source
	logger *zap.Logger
}

// NewNotifications creates a change source for the bucket of source.
func NewNotifications(source *Source, logger *zap.Logger) *Notifications {
	return &Notifications{source: source, logger: logger}
}

// Changes streams one batch per notification until ctx is done.
func (n *Notifications) Changes(ctx context.Context) <-chan []reconcile.ChangeEvent[string] {
	out := make(chan []reconcile.ChangeEvent[string])
	in := n.source.client.ListenBucketNotification(ctx, n.source.bucket, n.source.cfg.Prefix, "", notificationEvents)

	go func() {
		defer close(out)
		for {
			var info notification.Info
			var ok bool
			select {
			case <-ctx.Done():
				return
			case info, ok = <-in:
				if !ok {
					return
				}
			}

			batch := n.translate(info)
			if len(batch) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (n *Notifications) translate(info notification.Info) []reconcile.ChangeEvent[string] {
	if info.Err != nil {
		n.logger.Warn("Bucket notification failed", zap.Error(info.Err))
		return []reconcile.ChangeEvent[string]{{Type: reconcile.Error, Err: info.Err}}
	}

	s := n.source
	var batch []reconcile.ChangeEvent[string]
	seen := make(map[string]bool)
	for _, record := range info.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}
		rel := strings.TrimPrefix(key, s.cfg.Prefix)
		if rel == key && s.cfg.Prefix != "" {
			continue
		}
		rel = strings.TrimSuffix(rel, "/")
		if rel == "" {
			continue
		}
		if !validPath(rel) {
			n.logger.Debug("Ignoring notification for unrepresentable key", zap.String("key", key))
			continue
		}

		parent := path.Dir(rel)
		ev := reconcile.ChangeEvent[string]{
			Type: reconcile.Changed,
			Name: path.Base(rel),
		}
		if parent != "." {
			ev.ParentAltID = AltID{VolumeID: s.Volume(), ID: s.dirKey(parent)}
		}
		if strings.HasSuffix(key, "/") {
			ev.AltID = AltID{VolumeID: s.Volume(), ID: key}
		} else {
			ev.AltID = AltID{VolumeID: s.Volume(), ID: s.fileID(key, record.S3.Object.UserMetadata)}
			if strings.HasPrefix(record.EventName, "s3:ObjectCreated:") && ev.AltID.ID != key {
				// A node id under a new key may be a server-side move.
				ev.Type = reconcile.ChangedOrMoved
			}
		}
		batch = append(batch, ev)

		// Prefixes exist implicitly; every ancestor may have appeared or vanished.
		for dir := parent; dir != "."; dir = path.Dir(dir) {
			k := s.dirKey(dir)
			if seen[k] {
				break
			}
			seen[k] = true
			anc := reconcile.ChangeEvent[string]{
				Type:  reconcile.Changed,
				AltID: AltID{VolumeID: s.Volume(), ID: k},
				Name:  path.Base(dir),
			}
			if up := path.Dir(dir); up != "." {
				anc.ParentAltID = AltID{VolumeID: s.Volume(), ID: s.dirKey(up)}
			}
			batch = append(batch, anc)
		}
	}
	return batch
}
