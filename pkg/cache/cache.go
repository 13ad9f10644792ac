package cache

import (
	"context"
	"time"
)

// Cache stores opaque artifact bytes by key.
type Cache interface {
	// Get returns the cached bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer derives cache keys for render artifacts.
type Keyer interface {
	ArtifactKey(kind string, input []byte) string
}

// DefaultKeyer hashes the kind and input into a fixed-length key.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey returns "artifact:<sha256>" over kind and input.
func (DefaultKeyer) ArtifactKey(kind string, input []byte) string {
	return hashKey("artifact", kind, Hash(input))
}
