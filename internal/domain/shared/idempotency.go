package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks processed delivery keys so repeated webhook
// deliveries and repeated user actions have the same effect as one.
type IdempotencyStore interface {
	// MarkProcessed records a key with a TTL. Returns true if the key was
	// newly marked, false if it had already been processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a key has been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases store resources
	Close() error
}
