package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"docsend/internal/config"
)

// Package storage contains the blob store abstraction and its S3-compatible implementations.
// Implementations must avoid using local disk and rely on streaming I/O only.

// NonceParam is the query parameter carrying a per-mint random value in signed URLs, so two
// signatures of the same object never produce the same URL. S3-compatible stores ignore
// unknown "x-" parameters on GET but include them in the signature.
const NonceParam = "x-delivery-nonce"

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType and Metadata are optional.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
}

// Storage is the blob store capability used by the profile and delivery services.
type Storage interface {
	// Put uploads an object under the given key and returns once the upload has completed.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet mints a new time-limited URL for downloading the object without credentials.
	// Every call returns a distinct URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// New builds the Storage backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "minio":
		return NewMinIO(ctx, cfg)
	case "s3", "r2":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
