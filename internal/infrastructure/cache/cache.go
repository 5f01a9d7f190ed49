package cache

import (
	"context"
	"time"
)

// Store is the key-value cache contract used for derived artifacts such as
// proctoring reports. Implementations: Redis for deployments, the in-memory
// store for tests and local runs.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
