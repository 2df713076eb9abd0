package mcp

import (
	"context"
	"fmt"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/handoff"
)

// NewEventsCommand returns a command that hands the caller off to the
// HTTP transport's server-sent-event stream of tool calls. Register it
// only when the http transport is serving; stdio clients have nowhere
// to connect.
func NewEventsCommand(addr string) *command.Definition {
	return command.NewDefinition("events-subscribe").
		Description("Hand off to the live tool-call event stream").
		Category("mcp").
		Tags("mcp", "read", "safe", handoff.TagHandoff, handoff.Tag(handoff.ProtocolSSE)).
		Schema(command.EmptySchema()).
		Handler(func(_ context.Context, _ any, _ *command.ExecutionContext) command.Result {
			return handoff.Success(handoff.Result{
				Protocol: handoff.ProtocolSSE,
				Endpoint: fmt.Sprintf("http://%s/mcp/sse", addr),
				Metadata: &handoff.Metadata{
					Capabilities: []string{"tool-call-events"},
					Reconnect: &handoff.ReconnectPolicy{
						Allowed:     true,
						MaxAttempts: 5,
						BackoffMs:   1000,
					},
					Description: "One event per tool call with duration and outcome",
				},
			}, command.WithConfidence(1.0))
		}).
		MustBuild()
}
