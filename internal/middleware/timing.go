package middleware

import (
	"context"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
)

// DefaultSlowThreshold is the duration past which an invocation is
// logged as slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// TimingConfig configures the timing middleware.
type TimingConfig struct {
	// SlowThreshold overrides DefaultSlowThreshold when non-zero.
	SlowThreshold time.Duration

	// OnSlow runs for invocations exceeding the threshold, after the
	// warning is logged. Optional.
	OnSlow func(name string, duration time.Duration)
}

// NewTimingMiddleware creates a middleware that measures handler
// duration and stamps it on the result metadata. Slow invocations are
// logged but never aborted.
func NewTimingMiddleware(cfg TimingConfig) Middleware {
	threshold := cfg.SlowThreshold
	if threshold == 0 {
		threshold = DefaultSlowThreshold
	}

	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			start := time.Now()

			result := next(ctx, name, input, ec)

			duration := time.Since(start)
			result.EnsureMetadata().ExecutionTimeMs = float64(duration.Microseconds()) / 1000.0

			if duration > threshold {
				log.Warn(log.CatCommand, "command exceeded time threshold",
					"command", name,
					"trace_id", ec.TraceID,
					"duration", duration,
					"threshold", threshold,
				)
				if cfg.OnSlow != nil {
					cfg.OnSlow(name, duration)
				}
			}

			return result
		}
	}
}
