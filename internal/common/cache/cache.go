// Package cache keeps short-lived copies of DNS-master listings in memory.
package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache defines the interface for cache operations
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
}

// LocalCache wraps patrickmn/go-cache for in-memory caching
type LocalCache struct {
	cache *gocache.Cache
}

// NewLocalCache creates a new local cache instance
func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value from the local cache
func (l *LocalCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return l.cache.Get(key)
}

// Set stores a value in the local cache. A zero ttl uses the cache default.
func (l *LocalCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	l.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a value from the local cache
func (l *LocalCache) Delete(ctx context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

// DeletePrefix removes every key starting with prefix
func (l *LocalCache) DeletePrefix(ctx context.Context, prefix string) error {
	for key := range l.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			l.cache.Delete(key)
		}
	}
	return nil
}

// Clear removes all items from the local cache
func (l *LocalCache) Clear(ctx context.Context) error {
	l.cache.Flush()
	return nil
}

// NoopCache never stores anything. It is used when caching is disabled.
type NoopCache struct{}

// Get always misses
func (NoopCache) Get(ctx context.Context, key string) (interface{}, bool) { return nil, false }

// Set discards the value
func (NoopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

// Delete is a no-op
func (NoopCache) Delete(ctx context.Context, key string) error { return nil }

// DeletePrefix is a no-op
func (NoopCache) DeletePrefix(ctx context.Context, prefix string) error { return nil }

// Clear is a no-op
func (NoopCache) Clear(ctx context.Context) error { return nil }
