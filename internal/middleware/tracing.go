package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/dispatch/internal/command"
)

// Span attribute keys for command execution.
const (
	AttrCommandName    = "command.name"
	AttrCommandSurface = "command.surface"
	AttrCommandTraceID = "command.trace_id"
	AttrErrorCode      = "command.error_code"
)

// SpanPrefixCommand prefixes command execution span names.
const SpanPrefixCommand = "command.execute "

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	// Tracer is the OpenTelemetry tracer for creating spans.
	// If nil, the middleware returns a pass-through (no-op).
	Tracer trace.Tracer
}

// NewTracingMiddleware creates middleware that opens a span per
// invocation, tags it with the command attributes and records the
// failure code on error results.
func NewTracingMiddleware(cfg TracingConfig) Middleware {
	if cfg.Tracer == nil {
		return func(next Invoker) Invoker {
			return next
		}
	}

	return func(next Invoker) Invoker {
		return func(ctx context.Context, name string, input any, ec *command.ExecutionContext) command.Result {
			ctx, span := cfg.Tracer.Start(ctx, SpanPrefixCommand+name,
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String(AttrCommandName, name),
				attribute.String(AttrCommandSurface, string(ec.Surface)),
				attribute.String(AttrCommandTraceID, ec.TraceID),
			)

			result := next(ctx, name, input, ec)

			if result.Success {
				span.SetStatus(codes.Ok, "")
			} else if result.Error != nil {
				span.RecordError(result.Error)
				span.SetStatus(codes.Error, result.Error.Error())
				span.SetAttributes(attribute.String(AttrErrorCode, result.Error.Code))
			} else {
				span.SetStatus(codes.Error, "command failed without error details")
			}

			return result
		}
	}
}
