package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/streaming"
)

// Executor runs batches against an Exec function.
type Executor struct {
	exec Exec
}

// NewExecutor creates a batch executor.
func NewExecutor(exec Exec) *Executor {
	return &Executor{exec: exec}
}

// Run executes the batch on the given surface. Results keep the
// request order regardless of worker scheduling.
func (e *Executor) Run(ctx context.Context, req Request, surface command.Surface) Result {
	return e.run(ctx, req, surface, nil)
}

// RunStream executes the batch in the background and returns a chunk
// stream: throttled progress as commands settle, then a terminal chunk
// carrying the batch result or its error. The stream must be consumed
// to completion.
func (e *Executor) RunStream(ctx context.Context, req Request, surface command.Surface) <-chan streaming.Chunk {
	emitter := streaming.NewEmitter(streaming.DefaultOptions())
	total := len(req.Commands)

	go func() {
		result := e.run(ctx, req, surface, func(done int) {
			emitter.Progress(
				float64(done)/float64(total)*100,
				fmt.Sprintf("%d/%d commands finished", done, total),
			)
		})
		if result.Error != nil {
			emitter.Error(result.Error, false)
			return
		}
		emitter.Complete(result)
	}()

	return emitter.Chunks()
}

// run is the shared execution core. onSettled, when non-nil, is called
// with the running count each time a command finishes or is skipped; it
// may be called from multiple goroutines.
func (e *Executor) run(ctx context.Context, req Request, surface command.Surface, onSettled func(done int)) Result {
	started := time.Now()
	timing := Timing{StartedAt: started.UTC().Format(time.RFC3339)}

	if req.Options.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Options.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	workers := req.Options.MaxConcurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(req.Commands) {
		workers = len(req.Commands)
	}

	maxFailures := int64(1)
	if req.Options.ContinueOnError {
		maxFailures = int64(req.Options.MaxFailures)
		if maxFailures <= 0 {
			maxFailures = int64(len(req.Commands)) + 1 // never trip
		}
	}

	results := make([]CommandResult, len(req.Commands))
	indices := make(chan int)
	var failures, settled atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				cmd := req.Commands[i]

				if failures.Load() >= maxFailures || ctx.Err() != nil {
					results[i] = CommandResult{
						ID:      cmd.ID,
						Command: cmd.Command,
						Skipped: true,
						Result: command.Failure(command.NewError(
							command.CodeCommandCancelled,
							"Skipped: batch aborted before this command started",
						)),
					}
					if onSettled != nil {
						onSettled(int(settled.Add(1)))
					}
					continue
				}

				cmdStart := time.Now()
				result := e.exec(ctx, cmd.Command, cmd.Input, surface)
				results[i] = CommandResult{
					ID:         cmd.ID,
					Command:    cmd.Command,
					Result:     result,
					DurationMs: float64(time.Since(cmdStart).Microseconds()) / 1000.0,
				}

				if !result.Success {
					failures.Add(1)
				}
				if onSettled != nil {
					onSettled(int(settled.Add(1)))
				}
			}
		}()
	}

	for i := range req.Commands {
		indices <- i
	}
	close(indices)
	wg.Wait()

	elapsed := time.Since(started)
	timing.EndedAt = time.Now().UTC().Format(time.RFC3339)
	timing.TotalMs = float64(elapsed.Microseconds()) / 1000.0
	if len(req.Commands) > 0 {
		timing.AverageMs = timing.TotalMs / float64(len(req.Commands))
	}

	summary := summarize(results)
	batchResult := Result{
		Success: summary.Failed == 0 && summary.Skipped == 0,
		Results: results,
		Summary: summary,
		Timing:  timing,
	}
	if ctx.Err() == context.DeadlineExceeded {
		batchResult.Success = false
		batchResult.Error = command.Timeout("batch", req.Options.TimeoutMs)
	}

	log.Debug(log.CatBatch, "batch completed",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return batchResult
}
