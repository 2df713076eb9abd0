// Package cache wraps an in-memory TTL cache for command results and
// other per-process lookups. Keys are namespaced strings so mutations
// can invalidate every entry for a command in one call.
package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/dispatch/internal/log"
)

const DefaultExpiration = 10 * time.Minute
const DefaultCleanupInterval = 30 * time.Minute

// Store is a typed view over a go-cache instance. useCase tags log
// lines so multiple stores can share one log stream.
type Store[V any] struct {
	useCase string
	cache   *gocache.Cache
}

// NewStore initializes a store with its own expiration and cleanup
// interval.
func NewStore[V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *Store[V] {
	return &Store[V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
}

// Get retrieves an item by key.
func (s *Store[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V

	value, found := s.cache.Get(key)
	if !found {
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "useCase", s.useCase, "key", key)
		return zero, false
	}

	log.Debug(log.CatCache, "cache hit", "useCase", s.useCase, "key", key)
	return v, true
}

// GetWithRefresh retrieves an item and extends its ttl on a hit.
func (s *Store[V]) GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (V, bool) {
	value, found := s.Get(ctx, key)
	if !found {
		return value, false
	}

	s.Set(ctx, key, value, ttl)
	return value, true
}

// Set stores value under key with the given ttl.
func (s *Store[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	s.cache.Set(key, value, ttl)
}

// Delete removes keys.
func (s *Store[V]) Delete(ctx context.Context, keys ...string) {
	for _, key := range keys {
		s.cache.Delete(key)
	}
}

// DeleteByPrefix removes every entry whose key starts with prefix.
// Used to drop all cached results for a command after a mutation.
func (s *Store[V]) DeleteByPrefix(ctx context.Context, prefix string) int {
	var removed int
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		log.Debug(log.CatCache, "invalidated by prefix", "useCase", s.useCase, "prefix", prefix, "count", removed)
	}
	return removed
}

// Flush drops every entry.
func (s *Store[V]) Flush(ctx context.Context) {
	s.cache.Flush()
}

// ItemCount returns the number of live entries, expired ones included
// until the next cleanup.
func (s *Store[V]) ItemCount() int {
	return s.cache.ItemCount()
}
