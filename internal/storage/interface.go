package storage

import (
	"context"
)

// Store is where encoded outputs end up. Both the S3 client and the local
// filesystem store implement it.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType string) (*UploadResult, error)
	URL(key string) string
}

type UploadResult struct {
	Key         string
	URL         string
	ETag        string
	Size        int64
	ContentType string
}
