package middleware

import (
	"context"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/pubsub"
)

// ExecutionEvent is published once per command invocation.
type ExecutionEvent struct {
	Command    string          `json:"command"`
	Surface    command.Surface `json:"surface"`
	Success    bool            `json:"success"`
	ErrorCode  string          `json:"errorCode,omitempty"`
	DurationMs float64         `json:"durationMs"`
	TraceID    string          `json:"traceId"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TelemetryConfig configures the telemetry middleware.
type TelemetryConfig struct {
	// Publisher receives one ExecutionEvent per call. If nil, the
	// middleware is a no-op.
	Publisher pubsub.Publisher[ExecutionEvent]
}

// NewTelemetryMiddleware creates a middleware that emits an
// ExecutionEvent for each invocation. Telemetry failure never affects
// the command result.
func NewTelemetryMiddleware(cfg TelemetryConfig) Middleware {
	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			if cfg.Publisher == nil {
				return next(ctx, name, input, ec)
			}

			start := time.Now()
			result := next(ctx, name, input, ec)
			duration := time.Since(start)

			event := ExecutionEvent{
				Command:    name,
				Surface:    ec.Surface,
				Success:    result.Success,
				DurationMs: float64(duration.Microseconds()) / 1000.0,
				TraceID:    ec.TraceID,
				Timestamp:  time.Now(),
			}
			if result.Error != nil {
				event.ErrorCode = result.Error.Code
			}
			cfg.Publisher.Publish(pubsub.ExecutedEvent, event)

			return result
		}
	}
}
