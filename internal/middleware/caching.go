package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/zjrosen/dispatch/internal/cache"
	"github.com/zjrosen/dispatch/internal/command"
)

// DefaultCacheTTL bounds how long a read result stays valid.
const DefaultCacheTTL = 30 * time.Second

// CachingConfig configures the caching middleware.
type CachingConfig struct {
	// Store holds cached results. If nil, the middleware is a no-op.
	Store *cache.Store[command.Result]

	// TTL overrides DefaultCacheTTL when non-zero.
	TTL time.Duration

	// IsMutation reports whether the named command changes state.
	// Mutations are never cached and invalidate related entries.
	IsMutation func(name string) bool

	// InvalidatePrefix maps a mutation to the key prefix it
	// invalidates. By default a mutation drops every cached entry in
	// its name family: todo-create invalidates todo-*.
	InvalidatePrefix func(name string) string
}

// NewCachingMiddleware creates a read-through cache over command
// invocations. Successful results of non-mutating commands are cached
// per (name, input) pair; failures are not cached.
func NewCachingMiddleware(cfg CachingConfig) Middleware {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	invalidatePrefix := cfg.InvalidatePrefix
	if invalidatePrefix == nil {
		invalidatePrefix = familyPrefix
	}

	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			if cfg.Store == nil {
				return next(ctx, name, input, ec)
			}

			if cfg.IsMutation != nil && cfg.IsMutation(name) {
				result := next(ctx, name, input, ec)
				if result.Success {
					cfg.Store.DeleteByPrefix(ctx, invalidatePrefix(name))
				}
				return result
			}

			key := cacheKey(name, input)
			if cached, ok := cfg.Store.Get(ctx, key); ok {
				return cached
			}

			result := next(ctx, name, input, ec)
			if result.Success {
				cfg.Store.Set(ctx, key, result, ttl)
			}
			return result
		}
	}
}

// cacheKey derives a stable key from the command name and its input.
// The input has already passed schema validation so marshalling cannot
// hit unserializable values in practice; a marshal failure falls back
// to an input-blind key.
func cacheKey(name string, input any) string {
	h := sha256.New()
	if data, err := json.Marshal(input); err == nil {
		h.Write(data)
	}
	return name + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// familyPrefix maps todo-create to "todo-". Single-word names
// invalidate only themselves.
func familyPrefix(name string) string {
	if idx := strings.Index(name, "-"); idx >= 0 {
		return name[:idx+1]
	}
	return name
}
