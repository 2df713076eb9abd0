package batch

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/streaming"
)

// fakeExec succeeds for every command except names listed in fail.
func fakeExec(fail map[string]bool) Exec {
	return func(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result {
		if fail[name] {
			return command.Failure(command.Internal("forced failure"))
		}
		return command.Success(name, command.WithConfidence(0.8))
	}
}

func batchOf(names ...string) Request {
	req := Request{}
	for i, name := range names {
		req.Commands = append(req.Commands, Command{
			ID:      name + "-" + string(rune('a'+i)),
			Command: name,
		})
	}
	return req
}

func TestExecutor_AllSucceed(t *testing.T) {
	executor := NewExecutor(fakeExec(nil))

	result := executor.Run(context.Background(), batchOf("one", "two", "three"), command.SurfaceCLI)

	require.True(t, result.Success)
	require.Len(t, result.Results, 3)
	require.Equal(t, 3, result.Summary.Succeeded)
	require.Equal(t, 0, result.Summary.Failed)
	require.Equal(t, 1.0, result.Summary.SuccessRate())
	require.NotNil(t, result.Summary.AverageConfidence)
	require.InDelta(t, 0.8, *result.Summary.AverageConfidence, 1e-9)
	require.NotEmpty(t, result.Timing.StartedAt)
	require.NotEmpty(t, result.Timing.EndedAt)
}

func TestExecutor_StopsOnFirstFailure(t *testing.T) {
	executor := NewExecutor(fakeExec(map[string]bool{"two": true}))

	result := executor.Run(context.Background(), batchOf("one", "two", "three", "four"), command.SurfaceCLI)

	require.False(t, result.Success)
	require.Equal(t, 1, result.Summary.Succeeded)
	require.Equal(t, 1, result.Summary.Failed)
	require.Equal(t, 2, result.Summary.Skipped)

	require.True(t, result.Results[2].Skipped)
	require.Equal(t, command.CodeCommandCancelled, result.Results[2].Result.Error.Code)
}

func TestExecutor_ContinueOnError(t *testing.T) {
	executor := NewExecutor(fakeExec(map[string]bool{"two": true}))

	req := batchOf("one", "two", "three")
	req.Options.ContinueOnError = true
	result := executor.Run(context.Background(), req, command.SurfaceCLI)

	require.False(t, result.Success)
	require.Equal(t, 2, result.Summary.Succeeded)
	require.Equal(t, 1, result.Summary.Failed)
	require.Equal(t, 0, result.Summary.Skipped)
}

func TestExecutor_RunStream(t *testing.T) {
	executor := NewExecutor(fakeExec(nil))

	stream := executor.RunStream(context.Background(), batchOf("one", "two", "three"), command.SurfaceCLI)

	var chunks []streaming.Chunk
	for chunk := range stream {
		chunks = append(chunks, chunk)
	}
	require.NotEmpty(t, chunks)

	first, ok := chunks[0].(streaming.ProgressChunk)
	require.True(t, ok)
	require.Contains(t, first.Message, "commands finished")

	terminal, ok := chunks[len(chunks)-1].(streaming.CompleteChunk)
	require.True(t, ok)
	result := terminal.Data.(Result)
	require.True(t, result.Success)
	require.Equal(t, 3, result.Summary.Succeeded)
}

func TestExecutor_RunStream_TimeoutEndsWithError(t *testing.T) {
	slow := func(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result {
		select {
		case <-ctx.Done():
			return command.Failure(command.Timeout(name, 0))
		case <-time.After(time.Second):
			return command.Success(name)
		}
	}

	req := batchOf("one")
	req.Options.TimeoutMs = 10
	stream := NewExecutor(slow).RunStream(context.Background(), req, command.SurfaceCLI)

	result := streaming.Drain(stream)
	require.False(t, result.Success)
	require.Equal(t, command.CodeTimeout, result.Error.Code)
}

func TestExecutor_MaxFailures(t *testing.T) {
	executor := NewExecutor(fakeExec(map[string]bool{"f1": true, "f2": true}))

	req := batchOf("f1", "f2", "three", "four")
	req.Options.ContinueOnError = true
	req.Options.MaxFailures = 2
	result := executor.Run(context.Background(), req, command.SurfaceCLI)

	require.Equal(t, 2, result.Summary.Failed)
	require.Equal(t, 2, result.Summary.Skipped)
}

func TestExecutor_ResultsKeepRequestOrder(t *testing.T) {
	executor := NewExecutor(func(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result {
		if name == "slow" {
			time.Sleep(20 * time.Millisecond)
		}
		return command.Success(name)
	})

	req := batchOf("slow", "fast")
	req.Options.MaxConcurrency = 2
	result := executor.Run(context.Background(), req, command.SurfaceCLI)

	require.Equal(t, "slow", result.Results[0].Command)
	require.Equal(t, "fast", result.Results[1].Command)
}

func TestExecutor_BoundedConcurrency(t *testing.T) {
	var current, peak atomic.Int64
	executor := NewExecutor(func(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return command.Success(nil)
	})

	req := batchOf("a", "b", "c", "d", "e", "f")
	req.Options.MaxConcurrency = 2
	req.Options.ContinueOnError = true
	executor.Run(context.Background(), req, command.SurfaceCLI)

	require.LessOrEqual(t, peak.Load(), int64(2))
}

func TestExecutor_Timeout(t *testing.T) {
	executor := NewExecutor(func(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result {
		select {
		case <-time.After(time.Second):
			return command.Success(nil)
		case <-ctx.Done():
			return command.Failure(command.Timeout(name, 0))
		}
	})

	req := batchOf("slow-one", "slow-two")
	req.Options.TimeoutMs = 20
	result := executor.Run(context.Background(), req, command.SurfaceCLI)

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	require.Equal(t, command.CodeTimeout, result.Error.Code)
}

func TestExecutor_EmptyBatch(t *testing.T) {
	executor := NewExecutor(fakeExec(nil))

	result := executor.Run(context.Background(), Request{}, command.SurfaceCLI)
	require.True(t, result.Success)
	require.Equal(t, 0, result.Summary.Total)
	require.Equal(t, 0.0, result.Summary.SuccessRate())
}

func TestNewCommand_Validation(t *testing.T) {
	def := NewCommand(fakeExec(nil))
	require.Equal(t, "batch-execute", def.Name())

	_, errs := def.Schema().Validate(json.RawMessage(`{"commands":[]}`))
	require.NotNil(t, errs)

	_, errs = def.Schema().Validate(json.RawMessage(`{"commands":[{"id":"a","command":"x"},{"id":"a","command":"y"}]}`))
	require.NotNil(t, errs)
	require.Contains(t, errs.Issues[0].Path, "commands[1].id")

	input, errs := def.Schema().Validate(json.RawMessage(`{"commands":[{"id":"a","command":"x"}]}`))
	require.Nil(t, errs)
	req, ok := input.(Request)
	require.True(t, ok)
	require.Len(t, req.Commands, 1)
}

func TestNewCommand_Execute(t *testing.T) {
	def := NewCommand(fakeExec(nil))

	input, errs := def.Schema().Validate(json.RawMessage(`{"commands":[{"id":"a","command":"x"}]}`))
	require.Nil(t, errs)

	ec := command.NewExecutionContext(command.SurfaceMCP, "t")
	result := def.Handler()(context.Background(), input, ec)

	require.True(t, result.Success)
	batchResult, ok := result.Data.(Result)
	require.True(t, ok)
	require.Equal(t, 1, batchResult.Summary.Succeeded)
}
