package blob

import (
	"context"
	"fmt"
	"log/slog"

	"xetra/internal/config"
)

// Open builds the backend described by cfg, wrapped in Resilient, and
// returns a Bucket over it.
func Open(ctx context.Context, cfg config.Store, logger *slog.Logger) (*Bucket, error) {
	var backend Backend
	switch cfg.Backend {
	case "fs":
		backend = NewFSBackend(cfg.Path)
	case "s3":
		ak, sk := cfg.Credentials()
		s3b, err := NewS3Backend(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			AccessKey: ak,
			SecretKey: sk,
		})
		if err != nil {
			return nil, err
		}
		backend = s3b
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	rc := DefaultResilientConfig()
	if cfg.MaxRetries > 0 {
		rc.MaxRetries = cfg.MaxRetries
	}
	rc.RateLimitPerMin = cfg.RateLimitPerMin

	logger = logger.With("backend", backend.String())
	return NewBucket(NewResilient(backend, rc, logger), logger), nil
}
