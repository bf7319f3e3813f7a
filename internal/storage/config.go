package storage

import (
	"context"

	"golang.org/x/xerrors"
)

type Config struct {
	// Backend is where artifacts are written: "file" or "s3".
	Backend   string
	Directory string
	S3        S3Config
	HTTP      HTTPConfig
}

// New writes to the configured backend and reads s3:// and http(s):// URLs
// regardless of it.
func New(ctx context.Context, c Config) (Storage, error) {
	s3Storage, err := NewS3Storage(ctx, c.S3)
	if err != nil {
		return nil, xerrors.Errorf("failed to create s3 storage: %w", err)
	}
	httpStorage, err := NewHTTPStorage(ctx, c.HTTP)
	if err != nil {
		return nil, xerrors.Errorf("failed to create http storage: %w", err)
	}

	var base Storage
	switch c.Backend {
	case "", "file":
		base, err = NewFileStorage(ctx, FileConfig{Directory: c.Directory})
		if err != nil {
			return nil, xerrors.Errorf("failed to create file storage: %w", err)
		}
	case "s3":
		if c.S3.Bucket == "" {
			return nil, xerrors.New("s3 backend requires a bucket")
		}
		base = s3Storage
	default:
		return nil, xerrors.Errorf("unknown storage backend: %s", c.Backend)
	}

	return NewRouter(base, s3Storage, httpStorage), nil
}
