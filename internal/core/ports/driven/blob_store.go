package driven

import "context"

// BlobStore handles artifact bytes by key: original uploads, stamped output,
// and signature images. A written blob is immediately readable.
type BlobStore interface {
	// Read returns the blob's bytes. Returns domain.ErrArtifactMissing if the
	// key does not exist.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores the blob under key, replacing any existing content.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes the blob. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key holds a blob.
	Exists(ctx context.Context, key string) (bool, error)
}
