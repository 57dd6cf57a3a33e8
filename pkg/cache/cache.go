package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned for lookups of absent or expired keys.
var ErrCacheMiss = errors.New("cache: key not found")

// Service defines the cache operations this application relies on: JSON
// value storage plus a counter primitive for daily quotas.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
}
