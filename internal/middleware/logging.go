package middleware

import (
	"context"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
)

// LogSink receives structured log lines from the logging middleware.
// level is "debug", "warn" or "error".
type LogSink func(level, msg string, fields ...any)

// LoggingConfig configures the logging middleware.
type LoggingConfig struct {
	// Sink receives the log lines. When nil, lines go to the package
	// logger under the command category.
	Sink LogSink
}

// NewLoggingMiddleware creates a middleware that logs every invocation
// with its outcome and duration.
func NewLoggingMiddleware(cfg LoggingConfig) Middleware {
	sink := cfg.Sink
	if sink == nil {
		sink = func(level, msg string, fields ...any) {
			switch level {
			case "error":
				log.Error(log.CatCommand, msg, fields...)
			case "warn":
				log.Warn(log.CatCommand, msg, fields...)
			default:
				log.Debug(log.CatCommand, msg, fields...)
			}
		}
	}

	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			sink("debug", "command started",
				"command", name,
				"surface", string(ec.Surface),
				"trace_id", ec.TraceID,
			)
			start := time.Now()

			result := next(ctx, name, input, ec)

			duration := time.Since(start)
			if result.Success {
				sink("debug", "command completed",
					"command", name,
					"surface", string(ec.Surface),
					"trace_id", ec.TraceID,
					"duration", duration,
				)
			} else {
				errCode := ""
				errMsg := ""
				if result.Error != nil {
					errCode = result.Error.Code
					errMsg = result.Error.Message
				}
				sink("warn", "command failed",
					"command", name,
					"surface", string(ec.Surface),
					"trace_id", ec.TraceID,
					"duration", duration,
					"code", errCode,
					"error", errMsg,
				)
			}

			return result
		}
	}
}
