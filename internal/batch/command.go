package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/streaming"
)

// NewCommand wraps a batch executor as a registered command so every
// surface can submit batches.
func NewCommand(exec Exec) *command.Definition {
	executor := NewExecutor(exec)

	schema := command.SchemaFunc{
		ValidateFunc: func(raw json.RawMessage) (any, *command.FieldErrors) {
			var req Request
			if err := json.Unmarshal(raw, &req); err != nil {
				errs := &command.FieldErrors{}
				errs.Add("$", "input must be a batch request object: "+err.Error())
				return nil, errs
			}
			errs := &command.FieldErrors{}
			if len(req.Commands) == 0 {
				errs.Add("commands", "at least one command is required")
			}
			seen := make(map[string]struct{}, len(req.Commands))
			for i, cmd := range req.Commands {
				if cmd.ID == "" {
					errs.Add(indexedPath("commands", i, "id"), "required field is missing")
				} else if _, dup := seen[cmd.ID]; dup {
					errs.Add(indexedPath("commands", i, "id"), "duplicate command id")
				} else {
					seen[cmd.ID] = struct{}{}
				}
				if cmd.Command == "" {
					errs.Add(indexedPath("commands", i, "command"), "required field is missing")
				}
			}
			if len(errs.Issues) > 0 {
				return nil, errs
			}
			return req, nil
		},
		SchemaDoc: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"commands": map[string]any{
					"type":        "array",
					"description": "Commands to execute, each with a unique id",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":      map[string]any{"type": "string"},
							"command": map[string]any{"type": "string"},
							"input":   map[string]any{"type": "object"},
						},
						"required": []string{"id", "command"},
					},
				},
				"options": map[string]any{
					"type":        "object",
					"description": "continueOnError, maxConcurrency, timeoutMs, maxFailures",
				},
			},
			"required": []string{"commands"},
		},
	}

	return command.NewDefinition("batch-execute").
		Description("Execute multiple commands in one request and report per-command outcomes").
		Category("batch").
		Tags("batch", "composite").
		Schema(schema).
		Handler(func(ctx context.Context, input any, ec *command.ExecutionContext) command.Result {
			// The handler surface is synchronous, so the stream is
			// folded down to its terminal chunk here.
			req := input.(Request)
			return streaming.Drain(executor.RunStream(ctx, req, ec.Surface))
		}).
		MustBuild()
}

func indexedPath(field string, i int, sub string) string {
	return fmt.Sprintf("%s[%d].%s", field, i, sub)
}
