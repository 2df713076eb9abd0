package middleware

import (
	"context"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
)

// DefaultTimeout bounds handler execution when no override is given.
const DefaultTimeout = 30 * time.Second

// TimeoutConfig configures the timeout middleware.
type TimeoutConfig struct {
	// Timeout overrides DefaultTimeout when non-zero.
	Timeout time.Duration
}

// NewTimeoutMiddleware creates a middleware that bounds each invocation
// with a deadline. A handler that exceeds it yields a retryable TIMEOUT
// failure; the handler's context is cancelled so it can stop work, but
// its goroutine is left to finish on its own.
func NewTimeoutMiddleware(cfg TimeoutConfig) Middleware {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan command.Result, 1)
			go func() {
				done <- next(ctx, name, input, ec)
			}()

			select {
			case result := <-done:
				return result
			case <-ctx.Done():
				log.Warn(log.CatCommand, "command timed out",
					"command", name,
					"trace_id", ec.TraceID,
					"timeout", timeout,
				)
				return command.Failure(command.Timeout(name, timeout.Milliseconds()))
			}
		}
	}
}
