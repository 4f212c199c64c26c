// Package storage provides object storage for logos and rendered documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	infraconfig "github.com/erp/bizdesk/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Get when the key does not exist
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage stores opaque blobs by key
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// DownloadURL returns a time-limited URL for the object
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Object is a stored blob
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// New builds the storage backend named by cfg.Provider.
// The "none" provider yields a nil storage.
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	switch cfg.Provider {
	case "none":
		return nil, nil
	case "", "local":
		return NewLocalObjectStorage(cfg.LocalPath, WithLocalPresignExpiration(cfg.PresignExpiry))
	case "s3":
		s, err := NewS3ObjectStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

func requireKey(key string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	return nil
}
