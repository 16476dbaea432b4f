package domain

import "context"

// BlobStore persists snapshot objects. Put overwrites an existing object at the
// same path and Delete of a missing object is not an error.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Delete(ctx context.Context, path string) error
}
