package ports

import (
	"context"
	"time"
)

// Cache is a key-value store with per-key expiry. A ttl <= 0 never expires.
// Adapters may be backed by the relational store or an external cache.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
