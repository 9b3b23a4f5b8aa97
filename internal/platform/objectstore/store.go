// Package objectstore is the blob store behind book covers and ebook content.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/pkg/config"
)

var ErrObjectNotFound = errors.New("object not found")

// Store is a keyed blob map with presigned read links. Writes are
// last-writer-wins; there is no multi-key atomicity.
type Store interface {
	// Put stores size bytes from r under key and returns the object URL.
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (string, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// Presign returns a capability URL valid for ttl.
	Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// NewStore builds the Store selected by storage.driver.
func NewStore(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		log.Warnw("using in-memory object store, content is lost on restart")
		return NewMemoryStore(), nil
	case config.StorageDriverMinio, "":
		s, err := NewMinioStore(cfg.Storage)
		if err != nil {
			return nil, err
		}
		buckets := []string{cfg.Storage.CoverBucket, cfg.Storage.ContentBucket}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := s.EnsureBuckets(ctx, buckets...); err != nil {
					return err
				}
				log.Infow("object store ready", "endpoint", cfg.Storage.Endpoint, "buckets", buckets)
				return nil
			},
		})
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
