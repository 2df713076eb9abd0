package command

import "time"

// User is the authenticated caller snapshot attached to an execution.
// Kept minimal so transports and middleware agree on one shape.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// ExecutionContext carries per-invocation state across the middleware
// pipeline and into handlers. Fields are explicit rather than a generic
// bag so callers cannot smuggle untyped state.
type ExecutionContext struct {
	// Surface is the entry point that initiated this invocation.
	Surface Surface

	// TraceID correlates the invocation across logs, spans and the
	// result metadata. Assigned by the registry before middleware runs.
	TraceID string

	// User is set by the auth middleware when the caller is
	// authenticated. Nil for anonymous invocations.
	User *User

	// StartedAt is stamped when the registry begins executing.
	StartedAt time.Time
}

// NewExecutionContext returns a context for surface with the trace ID
// assigned and the clock stamped.
func NewExecutionContext(surface Surface, traceID string) *ExecutionContext {
	return &ExecutionContext{
		Surface:   surface,
		TraceID:   traceID,
		StartedAt: time.Now(),
	}
}

// Authenticated reports whether a user snapshot is attached.
func (ec *ExecutionContext) Authenticated() bool {
	return ec != nil && ec.User != nil
}
