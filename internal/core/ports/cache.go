// internal/core/ports/cache.go
package ports

import (
	"context"
	"time"
)

// CacheRepository defines the interface for cache operations
type CacheRepository interface {
	// Basic operations
	Set(ctx context.Context, key string, value interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)

	// Read-through fetch
	GetOrSet(ctx context.Context, key string, dest interface{},
		fetch func() (interface{}, error), ttl time.Duration) error

	// Utility operations
	TTL(ctx context.Context, key string) (time.Duration, error)
	Flush(ctx context.Context) error
	Ping(ctx context.Context) error
}

// LowStockReportKey is the cache key shared by the low-stock report read
// path and the periodic scan that pre-warms it. It sits under the
// "lowstock" prefix the invalidation patterns cover.
const LowStockReportKey = "lowstock:report"

// CacheInvalidator drops cached query results after a write commits.
// Invalidation is best effort; a miss on the next read repopulates.
type CacheInvalidator interface {
	InvalidateSaleCaches(ctx context.Context)
	InvalidateProductCaches(ctx context.Context)
}
