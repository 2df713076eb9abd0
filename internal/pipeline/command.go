package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zjrosen/dispatch/internal/command"
)

// NewCommand wraps a pipeline executor as a registered command so
// every surface can submit pipelines.
func NewCommand(exec Exec) *command.Definition {
	executor := NewExecutor(exec, nil)
	return newCommandWith(executor)
}

// NewCommandWithExecutor registers a pre-built executor, keeping its
// progress broker wiring.
func NewCommandWithExecutor(executor *Executor) *command.Definition {
	return newCommandWith(executor)
}

func newCommandWith(executor *Executor) *command.Definition {
	schema := command.SchemaFunc{
		ValidateFunc: func(raw json.RawMessage) (any, *command.FieldErrors) {
			var req Request
			if err := json.Unmarshal(raw, &req); err != nil {
				errs := &command.FieldErrors{}
				errs.Add("$", "input must be a pipeline request object: "+err.Error())
				return nil, errs
			}
			errs := &command.FieldErrors{}
			if len(req.Steps) == 0 {
				errs.Add("steps", "at least one step is required")
			}
			for i, step := range req.Steps {
				if step.Command == "" {
					errs.Add(fmt.Sprintf("steps[%d].command", i), "required field is missing")
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
				"steps": map[string]any{
					"type":        "array",
					"description": "Ordered steps; inputs may reference $prev, $first, $input, $steps[n], $steps.alias",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"command": map[string]any{"type": "string"},
							"input":   map[string]any{"type": "object"},
							"as":      map[string]any{"type": "string"},
							"when":    map[string]any{"type": "object"},
						},
						"required": []string{"command"},
					},
				},
				"options": map[string]any{
					"type":        "object",
					"description": "continueOnFailure, timeoutMs",
				},
				"input": map[string]any{
					"type":        "object",
					"description": "Data available to steps as $input",
				},
			},
			"required": []string{"steps"},
		},
	}

	return command.NewDefinition("pipeline-execute").
		Description("Execute a chain of commands where each step can reference earlier outputs").
		Category("pipeline").
		Tags("pipeline", "composite").
		Schema(schema).
		Handler(func(ctx context.Context, input any, ec *command.ExecutionContext) command.Result {
			req := input.(Request)
			result := executor.Run(ctx, req, ec.Surface)

			if !result.Success() {
				for _, step := range result.Steps {
					if step.Status == StepFailure {
						stepErr := *step.Error
						return command.Failure(stepErr.WithDetails(map[string]any{
							"stepIndex": step.Index,
							"command":   step.Command,
							"pipeline":  result,
						}))
					}
				}
			}

			opts := []command.Option{command.WithConfidence(result.Metadata.Confidence)}
			return command.Success(result, opts...)
		}).
		MustBuild()
}
