// Package handoff defines the payload returned by commands that
// bootstrap a specialized real-time connection. The command result
// carries everything the client needs to switch protocols: where to
// connect, how to authenticate and what the channel supports.
package handoff

import (
	"github.com/zjrosen/dispatch/internal/command"
)

// Standard protocols. Custom protocol strings are allowed.
const (
	ProtocolWebSocket  = "websocket"
	ProtocolWebRTC     = "webrtc"
	ProtocolSSE        = "sse"
	ProtocolHTTPStream = "http-stream"
)

// TagHandoff marks a command as returning a handoff payload. Protocol
// specific tags use Tag.
const TagHandoff = "handoff"

// Tag returns the discovery tag for a protocol, e.g. "handoff:sse".
func Tag(protocol string) string {
	return TagHandoff + ":" + protocol
}

// ReconnectPolicy tells the client whether and how to reconnect.
type ReconnectPolicy struct {
	Allowed     bool `json:"allowed"`
	MaxAttempts int  `json:"maxAttempts,omitempty"`
	BackoffMs   int  `json:"backoffMs,omitempty"`
}

// Credentials authenticate the handoff connection.
type Credentials struct {
	Token     string            `json:"token,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
}

// Metadata helps the client decide whether and how to take the handoff.
type Metadata struct {
	ExpectedLatencyMs int              `json:"expectedLatencyMs,omitempty"`
	Capabilities      []string         `json:"capabilities,omitempty"`
	ExpiresAt         string           `json:"expiresAt,omitempty"`
	Reconnect         *ReconnectPolicy `json:"reconnect,omitempty"`
	Description       string           `json:"description,omitempty"`
}

// Result is the data payload of a handoff command's success result.
type Result struct {
	Protocol    string       `json:"protocol"`
	Endpoint    string       `json:"endpoint"`
	Credentials *Credentials `json:"credentials,omitempty"`
	Metadata    *Metadata    `json:"metadata,omitempty"`
}

// Success wraps a handoff payload in a success result.
func Success(h Result, opts ...command.Option) command.Result {
	return command.Success(h, opts...)
}

// Is reports whether value looks like a handoff payload: a Result, or
// a decoded JSON object with non-empty protocol and endpoint strings.
func Is(value any) bool {
	switch v := value.(type) {
	case Result:
		return v.Protocol != "" && v.Endpoint != ""
	case *Result:
		return v != nil && v.Protocol != "" && v.Endpoint != ""
	case map[string]any:
		protocol, ok := v["protocol"].(string)
		if !ok || protocol == "" {
			return false
		}
		endpoint, ok := v["endpoint"].(string)
		return ok && endpoint != ""
	default:
		return false
	}
}

// IsProtocol reports whether value is a handoff for the given protocol.
func IsProtocol(value any, protocol string) bool {
	if !Is(value) {
		return false
	}
	switch v := value.(type) {
	case Result:
		return v.Protocol == protocol
	case *Result:
		return v.Protocol == protocol
	case map[string]any:
		p, _ := v["protocol"].(string)
		return p == protocol
	}
	return false
}
