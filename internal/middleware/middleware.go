// Package middleware wraps command invocations to add cross-cutting
// concerns like auth gating, logging, timing, telemetry, timeouts,
// caching and tracing. Middleware functions are composed using Chain.
package middleware

import (
	"context"

	"github.com/zjrosen/dispatch/internal/command"
)

// Invoker executes a named command with validated input. The registry
// supplies the innermost invoker; middleware wrap it.
type Invoker func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result

// Middleware wraps an Invoker to add additional behavior.
type Middleware func(Invoker) Invoker

// Chain applies middlewares to an invoker in reverse order.
// The first middleware in the list will be the outermost wrapper.
// For example: Chain(inv, auth, logging, timing)
// Results in: auth(logging(timing(inv)))
func Chain(inv Invoker, middlewares ...Middleware) Invoker {
	for i := len(middlewares) - 1; i >= 0; i-- {
		inv = middlewares[i](inv)
	}
	return inv
}
