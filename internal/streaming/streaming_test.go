package streaming

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/command"
)

func TestProgress_Clamping(t *testing.T) {
	require.Equal(t, 100.0, Progress(150, "x").Progress)
	require.Equal(t, 0.0, Progress(-10, "x").Progress)
	require.Equal(t, 50.0, Progress(50, "x").Progress)
}

func TestChunk_WireShape(t *testing.T) {
	data, err := json.Marshal(ProgressSteps(40, "Processing...", 2, 5))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, "progress", raw["type"])
	require.Equal(t, 40.0, raw["progress"])
	require.Equal(t, 2.0, raw["currentStep"])
	require.Equal(t, 5.0, raw["totalSteps"])

	data, err = json.Marshal(Error(command.Internal("boom"), true))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, "error", raw["type"])
	require.Equal(t, true, raw["recoverable"])
}

func TestCollectData(t *testing.T) {
	chunks := []Chunk{
		Progress(10, "start"),
		Data("a", false),
		Data("b", false),
		Progress(90, "almost"),
		Complete("final", 12),
	}

	require.Equal(t, []any{"a", "b", "final"}, CollectData(chunks))
}

func TestDrain_Success(t *testing.T) {
	emitter := NewEmitter(DefaultOptions())
	go func() {
		emitter.Progress(50, "halfway")
		emitter.Complete(map[string]any{"count": 3})
	}()

	result := Drain(emitter.Chunks())
	require.True(t, result.Success)
	require.Equal(t, map[string]any{"count": 3}, result.Data)
}

func TestDrain_Error(t *testing.T) {
	emitter := NewEmitter(DefaultOptions())
	go func() {
		emitter.Error(command.NotFound("todo", "t-1"), false)
	}()

	result := Drain(emitter.Chunks())
	require.False(t, result.Success)
	require.Equal(t, command.CodeNotFound, result.Error.Code)
}

func TestEmitter_ProgressThrottled(t *testing.T) {
	emitter := NewEmitter(Options{
		ReportProgress:   true,
		ProgressInterval: time.Hour,
		BufferSize:       8,
	})

	require.True(t, emitter.Progress(10, "first"))
	require.False(t, emitter.Progress(20, "dropped"))
}

func TestEmitter_PartialDataDisabledByDefault(t *testing.T) {
	emitter := NewEmitter(DefaultOptions())
	require.False(t, emitter.Data("partial"))
}

func TestEmitter_DataSequence(t *testing.T) {
	emitter := NewEmitter(Options{EmitPartialData: true, BufferSize: 8})

	require.True(t, emitter.Data("a"))
	require.True(t, emitter.Data("b"))
	emitter.Complete("done")

	var sequences []int
	for chunk := range emitter.Chunks() {
		if dc, ok := chunk.(DataChunk); ok {
			sequences = append(sequences, dc.Sequence)
		}
	}
	require.Equal(t, []int{1, 2}, sequences)
}

func TestEmitter_ClosedIsInert(t *testing.T) {
	emitter := NewEmitter(DefaultOptions())
	emitter.Complete("done")

	require.False(t, emitter.Progress(10, "late"))
	emitter.Complete("again")
	emitter.Error(command.Internal("late"), false)

	result := Drain(emitter.Chunks())
	require.True(t, result.Success)
	require.Equal(t, "done", result.Data)
}
