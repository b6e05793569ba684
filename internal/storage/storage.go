package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage contains the object-store abstraction behind the blob
// upload API. Implementations must rely on streaming I/O only; no local disk.

// ErrNotFound is returned by Get when no object exists under the given key.
var ErrNotFound = errors.New("object not found")

// PutOptions define optional parameters for uploading objects. Size should be
// the exact number of bytes if known; -1 lets the backend chunk as it sees
// fit.
type PutOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// BlobStore is an S3-compatible object storage client.
type BlobStore interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL usable without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
