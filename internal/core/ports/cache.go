package ports

import (
	"context"
	"time"
)

// Cache is the byte-level cache behind read-mostly lookups such as buildings.
// A cache error must never fail the caller; repositories fall back to the store.
type Cache interface {
	// Get returns ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl; ttl <= 0 keeps it until evicted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
