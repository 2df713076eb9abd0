package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/pubsub"
	"github.com/zjrosen/dispatch/internal/registry"
)

// ToolCallEvent is published after every tools/call execution.
type ToolCallEvent struct {
	Tool       string  `json:"tool"`
	DurationMs float64 `json:"durationMs"`
	IsError    bool    `json:"isError"`
	TraceID    string  `json:"traceId,omitempty"`
}

// AdapterConfig configures an Adapter.
type AdapterConfig struct {
	// Info identifies the server during initialize.
	Info ServerInfo

	// Instructions is free-form guidance returned from initialize.
	Instructions string

	// Events receives a ToolCallEvent per execution. Nil disables
	// publishing.
	Events pubsub.Publisher[ToolCallEvent]
}

// Adapter translates JSON-RPC messages into registry executions. It is
// safe for concurrent use.
type Adapter struct {
	reg          *registry.Registry
	info         ServerInfo
	instructions string
	events       pubsub.Publisher[ToolCallEvent]
	initialized  atomic.Bool
}

// NewAdapter creates an adapter over reg.
func NewAdapter(reg *registry.Registry, cfg AdapterConfig) *Adapter {
	info := cfg.Info
	if info.Name == "" {
		info.Name = "dispatch"
	}
	return &Adapter{
		reg:          reg,
		info:         info,
		instructions: cfg.Instructions,
		events:       cfg.Events,
	}
}

// HandleMessage processes one raw JSON-RPC message and returns the
// encoded response, or nil when the message was a notification.
func (a *Adapter) HandleMessage(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return encode(newErrorResponse(nil, CodeParseError, fmt.Sprintf("parse error: %v", err)))
	}
	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		if req.Notification() {
			return nil
		}
		return encode(newErrorResponse(req.ID, CodeInvalidRequest, "invalid request"))
	}

	// Notifications are accepted and dropped without a response.
	if strings.HasPrefix(req.Method, "notifications/") {
		log.Debug(log.CatMCP, "notification received", "method", req.Method)
		return nil
	}

	resp := a.dispatch(ctx, req)
	if req.Notification() {
		return nil
	}
	return encode(resp)
}

func (a *Adapter) dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "initialize":
		return a.handleInitialize(req)
	case "ping":
		return newResponse(req.ID, map[string]any{})
	case "tools/list":
		return a.handleToolsList(req)
	case "tools/call":
		return a.handleToolsCall(ctx, req)
	default:
		log.Warn(log.CatMCP, "unknown method", "method", req.Method)
		return newErrorResponse(req.ID, CodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method))
	}
}

// handleInitialize is idempotent: repeated initializes return the same
// result.
func (a *Adapter) handleInitialize(req Request) Response {
	a.initialized.Store(true)
	log.Info(log.CatMCP, "session initialized", "server", a.info.Name, "version", a.info.Version)
	return newResponse(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      a.info,
		Instructions:    a.instructions,
	})
}

func (a *Adapter) handleToolsList(req Request) Response {
	defs := a.reg.List(registry.Filter{Surface: command.SurfaceMCP})
	tools := make([]Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, Tool{
			Name:        def.Name(),
			Description: def.Description(),
			InputSchema: def.Schema().JSONSchema(),
			Annotations: &ToolAnnotations{
				ReadOnlyHint:    !def.Mutation(),
				DestructiveHint: def.Destructive(),
			},
		})
	}
	return newResponse(req.ID, ListToolsResult{Tools: tools})
}

// handleToolsCall executes a command. A failed command is a successful
// protocol exchange: the failure travels inside the tool result with
// isError set, never as a JSON-RPC error.
func (a *Adapter) handleToolsCall(ctx context.Context, req Request) Response {
	var params CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return newErrorResponse(req.ID, CodeInvalidParams, "tools/call requires a tool name")
	}

	start := time.Now()
	result := a.reg.Execute(ctx, params.Name, params.Arguments, command.SurfaceMCP)
	duration := time.Since(start)

	payload, err := json.Marshal(result)
	if err != nil {
		return newErrorResponse(req.ID, CodeInternalError,
			fmt.Sprintf("failed to serialize result: %v", err))
	}

	traceID := ""
	if result.Metadata != nil {
		traceID = result.Metadata.TraceID
	}
	if a.events != nil {
		a.events.Publish(pubsub.ExecutedEvent, ToolCallEvent{
			Tool:       params.Name,
			DurationMs: float64(duration.Microseconds()) / 1000.0,
			IsError:    !result.Success,
			TraceID:    traceID,
		})
	}
	log.Debug(log.CatMCP, "tool called",
		"tool", params.Name,
		"success", result.Success,
		"duration", duration.String(),
	)

	return newResponse(req.ID, CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(payload)}},
		IsError: !result.Success,
	})
}

// Initialized reports whether an initialize request has been handled.
func (a *Adapter) Initialized() bool {
	return a.initialized.Load()
}

func encode(resp Response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		// Marshaling our own response types cannot fail with valid
		// inputs; fall back to a static internal error.
		return []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"internal error"}}`)
	}
	return out
}
