package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/pubsub"
	"github.com/zjrosen/dispatch/internal/streaming"
)

// Exec runs one command. The registry's Execute method satisfies it.
type Exec func(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result

// ProgressUpdate is published after every step so listeners (palette,
// SSE clients) can render pipeline progress live. Chunk carries the
// same information in the wire format streaming consumers expect.
type ProgressUpdate struct {
	PipelineID string                  `json:"pipelineId,omitempty"`
	StepIndex  int                     `json:"stepIndex"`
	TotalSteps int                     `json:"totalSteps"`
	Command    string                  `json:"command"`
	Status     StepStatus              `json:"status"`
	Chunk      streaming.ProgressChunk `json:"chunk"`
}

// Executor runs pipelines against an Exec function.
type Executor struct {
	exec   Exec
	events *pubsub.Broker[ProgressUpdate]
}

// NewExecutor creates a pipeline executor. events may be nil when no
// one listens for progress.
func NewExecutor(exec Exec, events *pubsub.Broker[ProgressUpdate]) *Executor {
	return &Executor{exec: exec, events: events}
}

// Run executes the pipeline sequentially on the given surface.
func (e *Executor) Run(ctx context.Context, req Request, surface command.Surface) Result {
	started := time.Now()

	if req.Options.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Options.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	pctx := &Context{Input: req.Input}
	results := make([]StepResult, 0, len(req.Steps))

	for i, step := range req.Steps {
		if step.When != nil && !step.When.Evaluate(pctx) {
			skipped := StepResult{
				Index:   i,
				Alias:   step.As,
				Command: step.Command,
				Status:  StepSkipped,
			}
			results = append(results, skipped)
			pctx.Steps = append(pctx.Steps, skipped)
			e.publish(req.ID, skipped, len(req.Steps))
			continue
		}

		var resolved any = map[string]any{}
		if step.Input != nil {
			resolved = ResolveVariables(step.Input, pctx)
		}
		raw, err := json.Marshal(resolved)
		if err != nil {
			raw = []byte(`{}`)
		}

		stepStart := time.Now()
		var result command.Result
		if ctx.Err() != nil {
			result = command.Failure(command.Timeout(step.Command, req.Options.TimeoutMs))
		} else {
			result = e.exec(ctx, step.Command, raw, surface)
		}
		elapsed := float64(time.Since(stepStart).Microseconds()) / 1000.0

		stepResult := StepResult{
			Index:           i,
			Alias:           step.As,
			Command:         step.Command,
			ExecutionTimeMs: elapsed,
		}
		if result.Success {
			stepResult.Status = StepSuccess
			stepResult.Data = result.Data
			stepResult.Confidence = result.Confidence
			stepResult.Reasoning = result.Reasoning
			stepResult.Warnings = result.Warnings
			stepResult.Sources = result.Sources
			stepResult.Alternatives = result.Alternatives
		} else {
			stepResult.Status = StepFailure
			stepResult.Error = result.Error
		}

		results = append(results, stepResult)
		pctx.Steps = append(pctx.Steps, stepResult)
		pctx.Previous = &pctx.Steps[len(pctx.Steps)-1]
		e.publish(req.ID, stepResult, len(req.Steps))

		if !result.Success && !req.Options.ContinueOnFailure {
			for j := i + 1; j < len(req.Steps); j++ {
				remaining := req.Steps[j]
				skipped := StepResult{
					Index:   j,
					Alias:   remaining.As,
					Command: remaining.Command,
					Status:  StepSkipped,
				}
				results = append(results, skipped)
				e.publish(req.ID, skipped, len(req.Steps))
			}
			break
		}
	}

	// Final data comes from the last successful step.
	var finalData any
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Status == StepSuccess {
			finalData = results[i].Data
			break
		}
	}

	totalMs := float64(time.Since(started).Microseconds()) / 1000.0
	meta := aggregate(results, totalMs)

	log.Debug(log.CatPipeline, "pipeline completed",
		"id", req.ID,
		"total_steps", meta.TotalSteps,
		"completed_steps", meta.CompletedSteps,
		"confidence", meta.Confidence,
	)

	return Result{
		Data:     finalData,
		Metadata: meta,
		Steps:    results,
	}
}

func (e *Executor) publish(id string, step StepResult, total int) {
	if e.events == nil {
		return
	}
	done := step.Index + 1
	percent := float64(done) / float64(total) * 100
	message := fmt.Sprintf("%s: %s", step.Command, step.Status)
	e.events.Publish(pubsub.ProgressEvent, ProgressUpdate{
		PipelineID: id,
		StepIndex:  step.Index,
		TotalSteps: total,
		Command:    step.Command,
		Status:     step.Status,
		Chunk:      streaming.ProgressSteps(percent, message, done, total),
	})
}
