// Package cache stores serialized agent results keyed by prompt fingerprint.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key/value store. A miss is reported as (nil, false, nil).
// Implementations never return an entry past its expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
