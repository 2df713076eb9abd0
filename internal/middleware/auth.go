package middleware

import (
	"context"

	"github.com/zjrosen/dispatch/internal/auth"
	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
)

// AuthConfig configures the auth middleware.
type AuthConfig struct {
	// Adapter supplies the session snapshot checked on every call.
	Adapter auth.Adapter

	// Exclude lists command names that run without authentication
	// (sign-in itself, help and discovery commands).
	Exclude []string
}

// NewAuthMiddleware creates a middleware that rejects calls to
// non-excluded commands while the session is unauthenticated. On an
// authenticated call it attaches the user to the execution context so
// handlers and downstream middleware can read it.
// The session is consulted fresh on every call; authorization can
// change between calls.
func NewAuthMiddleware(cfg AuthConfig) Middleware {
	excluded := make(map[string]struct{}, len(cfg.Exclude))
	for _, name := range cfg.Exclude {
		excluded[name] = struct{}{}
	}

	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			if _, ok := excluded[name]; ok {
				return next(ctx, name, input, ec)
			}

			state := cfg.Adapter.GetSession(ctx)
			if !state.Authenticated() {
				log.Warn(log.CatAuth, "unauthenticated call rejected",
					"command", name,
					"surface", string(ec.Surface),
					"trace_id", ec.TraceID,
				)
				return command.Failure(command.Unauthorized(""))
			}

			ec.User = &command.User{
				ID:    state.User.ID,
				Email: state.User.Email,
				Name:  state.User.Name,
			}
			return next(ctx, name, input, ec)
		}
	}
}
