package object

import (
	"context"
	"io"
)

// Object describes a stored upload.
type Object struct {
	Key       string
	SizeBytes int64
	MimeType  string
}

// ObjectStore saves and retrieves uploaded originals.
type ObjectStore interface {
	// Put stores r under the owner's namespace and sniffs its content type.
	Put(ctx context.Context, ownerID, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Provider names the backend for persistence ("local" or "s3").
	Provider() string
}
