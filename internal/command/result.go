package command

import (
	"encoding/json"
	"fmt"
)

// ResultMetadata carries execution bookkeeping on a result.
// ExecutionTimeMs is stamped by the timing middleware, never by handlers.
type ResultMetadata struct {
	ExecutionTimeMs float64        `json:"executionTimeMs,omitempty"`
	CommandVersion  string         `json:"commandVersion,omitempty"`
	TraceID         string         `json:"traceId,omitempty"`
	Timestamp       string         `json:"timestamp,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// Result is the envelope every command returns. Exactly one of Data and
// Error is populated, consistent with Success. Results are assembled
// only through the Success and Failure constructors.
type Result struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *CommandError `json:"error,omitempty"`

	Confidence   *float64        `json:"confidence,omitempty"`
	Reasoning    string          `json:"reasoning,omitempty"`
	Warnings     []Warning       `json:"warnings,omitempty"`
	Sources      []Source        `json:"sources,omitempty"`
	Plan         []PlanStep      `json:"plan,omitempty"`
	Alternatives []Alternative   `json:"alternatives,omitempty"`
	Suggestions  []string        `json:"suggestions,omitempty"`
	Metadata     *ResultMetadata `json:"metadata,omitempty"`
}

// Option customizes a success result.
type Option func(*Result)

// WithConfidence sets the confidence score. Values outside [0, 1] are a
// programming error and panic so they surface during development.
func WithConfidence(c float64) Option {
	if c < 0 || c > 1 {
		panic(fmt.Sprintf("command: confidence %v out of range [0, 1]", c))
	}
	return func(r *Result) {
		r.Confidence = &c
	}
}

// WithReasoning explains why the result was produced.
func WithReasoning(reasoning string) Option {
	return func(r *Result) {
		r.Reasoning = reasoning
	}
}

// WithWarnings attaches non-fatal warnings.
func WithWarnings(warnings ...Warning) Option {
	return func(r *Result) {
		r.Warnings = append(r.Warnings, warnings...)
	}
}

// WithSources attributes the result to its data sources.
func WithSources(sources ...Source) Option {
	return func(r *Result) {
		r.Sources = append(r.Sources, sources...)
	}
}

// WithPlan records the steps of a multi-stage execution.
func WithPlan(steps ...PlanStep) Option {
	return func(r *Result) {
		r.Plan = append(r.Plan, steps...)
	}
}

// WithAlternatives records options considered but not selected.
func WithAlternatives(alts ...Alternative) Option {
	return func(r *Result) {
		r.Alternatives = append(r.Alternatives, alts...)
	}
}

// WithSuggestions offers follow-up commands or actions to the caller.
func WithSuggestions(suggestions ...string) Option {
	return func(r *Result) {
		r.Suggestions = append(r.Suggestions, suggestions...)
	}
}

// WithMetadata sets the result metadata.
func WithMetadata(meta ResultMetadata) Option {
	return func(r *Result) {
		r.Metadata = &meta
	}
}

// Success builds a success result wrapping data.
func Success(data any, opts ...Option) Result {
	r := Result{Success: true, Data: data}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Failure builds a failure result wrapping err.
func Failure(err *CommandError) Result {
	if err == nil {
		err = NewError(CodeUnknownError, "command failed without error details")
	}
	return Result{Success: false, Error: err}
}

// Failuref builds a failure result from a code and a formatted message.
func Failuref(code, format string, args ...any) Result {
	return Failure(NewError(code, fmt.Sprintf(format, args...)))
}

// EnsureMetadata returns the result's metadata, allocating it if absent.
// Used by middleware that stamps trace IDs and durations.
func (r *Result) EnsureMetadata() *ResultMetadata {
	if r.Metadata == nil {
		r.Metadata = &ResultMetadata{}
	}
	return r.Metadata
}

// JSON serializes the result. Marshal failures (non-serializable handler
// data) degrade to an INTERNAL_ERROR payload rather than an empty body.
func (r Result) JSON() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		fallback := Failure(Internal(fmt.Sprintf("serializing result: %v", err)))
		data, _ = json.Marshal(fallback)
	}
	return data
}

// Decode remarshals a validated input value into a typed destination.
// Handlers use it to move from the schema's generic representation to
// their own input struct.
func Decode(input any, dst any) error {
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encoding input: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decoding input: %w", err)
	}
	return nil
}
