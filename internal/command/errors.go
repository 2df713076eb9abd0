package command

import "fmt"

// Reserved error codes produced by the platform itself.
// Commands may define additional domain codes; they should be listed in
// the definition's ErrorCodes so agents can discover them.
const (
	// Validation errors
	CodeValidationError      = "VALIDATION_ERROR"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	CodeInvalidFormat        = "INVALID_FORMAT"

	// Resource errors
	CodeNotFound      = "NOT_FOUND"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeConflict      = "CONFLICT"
	CodeNoChanges     = "NO_CHANGES"

	// Authorization errors
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeTokenExpired = "TOKEN_EXPIRED"

	// Rate limiting
	CodeRateLimited   = "RATE_LIMITED"
	CodeQuotaExceeded = "QUOTA_EXCEEDED"

	// Network/service errors
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeConnectionError    = "CONNECTION_ERROR"

	// Internal errors
	CodeInternalError  = "INTERNAL_ERROR"
	CodeNotImplemented = "NOT_IMPLEMENTED"
	CodeUnknownError   = "UNKNOWN_ERROR"

	// Dispatch errors
	CodeCommandNotFound       = "COMMAND_NOT_FOUND"
	CodeCommandNotExposed     = "COMMAND_NOT_EXPOSED"
	CodeCommandExecutionError = "COMMAND_EXECUTION_ERROR"
	CodeCommandCancelled      = "COMMAND_CANCELLED"
)

// CommandError describes a command failure. Code is the only field a
// caller should branch on programmatically; Suggestion turns the error
// from a dead-end into a recoverable situation.
type CommandError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Suggestion string         `json:"suggestion,omitempty"`
	Retryable  bool           `json:"retryable,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithSuggestion sets a recovery hint on the error.
func (e *CommandError) WithSuggestion(s string) *CommandError {
	e.Suggestion = s
	return e
}

// WithRetryable marks the error as transient.
func (e *CommandError) WithRetryable(retryable bool) *CommandError {
	e.Retryable = retryable
	return e
}

// WithDetails attaches debugging details to the error.
func (e *CommandError) WithDetails(details map[string]any) *CommandError {
	e.Details = details
	return e
}

// NewError creates a CommandError with a code and message.
func NewError(code, message string) *CommandError {
	return &CommandError{Code: code, Message: message}
}

// NotFound builds the standard NOT_FOUND error for a missing resource.
func NotFound(resource, id string) *CommandError {
	return &CommandError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s with ID '%s' not found", resource, id),
		Suggestion: fmt.Sprintf("Verify the %s ID exists and try again", lower(resource)),
		Retryable:  false,
		Details: map[string]any{
			"resourceType": resource,
			"resourceId":   id,
		},
	}
}

// Validation builds a VALIDATION_ERROR with an optional suggestion.
func Validation(message, suggestion string) *CommandError {
	if suggestion == "" {
		suggestion = "Check the input and try again"
	}
	return &CommandError{
		Code:       CodeValidationError,
		Message:    message,
		Suggestion: suggestion,
		Retryable:  false,
	}
}

// Unauthorized builds an UNAUTHORIZED error.
func Unauthorized(message string) *CommandError {
	if message == "" {
		message = "Authentication required"
	}
	return &CommandError{
		Code:       CodeUnauthorized,
		Message:    message,
		Suggestion: "Sign in and try again",
		Retryable:  false,
	}
}

// RateLimited builds a retryable RATE_LIMITED error. A zero retryAfter
// produces a generic wait suggestion.
func RateLimited(retryAfterSeconds int) *CommandError {
	suggestion := "Wait a moment and try again"
	var details map[string]any
	if retryAfterSeconds > 0 {
		suggestion = fmt.Sprintf("Wait %d seconds and try again", retryAfterSeconds)
		details = map[string]any{"retryAfterSeconds": retryAfterSeconds}
	}
	return &CommandError{
		Code:       CodeRateLimited,
		Message:    "Rate limit exceeded",
		Suggestion: suggestion,
		Retryable:  true,
		Details:    details,
	}
}

// Timeout builds a retryable TIMEOUT error for a named operation.
func Timeout(operation string, timeoutMs int64) *CommandError {
	return &CommandError{
		Code:       CodeTimeout,
		Message:    fmt.Sprintf("Operation '%s' timed out after %dms", operation, timeoutMs),
		Suggestion: "Try again with a simpler request or contact support if this persists",
		Retryable:  true,
		Details: map[string]any{
			"operationName": operation,
			"timeoutMs":     timeoutMs,
		},
	}
}

// Internal builds a retryable INTERNAL_ERROR.
func Internal(message string) *CommandError {
	return &CommandError{
		Code:       CodeInternalError,
		Message:    message,
		Suggestion: "Please try again. If this persists, contact support.",
		Retryable:  true,
	}
}

// Conflict builds a CONFLICT error.
func Conflict(message string) *CommandError {
	return &CommandError{
		Code:      CodeConflict,
		Message:   message,
		Retryable: false,
	}
}

// AlreadyExists builds an ALREADY_EXISTS error for a duplicate resource.
func AlreadyExists(resource, id string) *CommandError {
	return &CommandError{
		Code:      CodeAlreadyExists,
		Message:   fmt.Sprintf("%s with ID '%s' already exists", resource, id),
		Retryable: false,
		Details: map[string]any{
			"resourceType": resource,
			"resourceId":   id,
		},
	}
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
