// Package streaming lets long-running commands report progress and
// partial data before the final result is ready. Chunks flow over a
// channel; the terminal chunk is always a Complete or an Error.
package streaming

import (
	"github.com/zjrosen/dispatch/internal/command"
)

// ChunkKind discriminates the chunk union on the wire.
type ChunkKind string

const (
	KindProgress ChunkKind = "progress"
	KindData     ChunkKind = "data"
	KindComplete ChunkKind = "complete"
	KindError    ChunkKind = "error"
)

// Chunk is one streamed event.
type Chunk interface {
	Kind() ChunkKind
}

// ProgressChunk reports how far along the command is.
type ProgressChunk struct {
	Type        ChunkKind `json:"type"`
	Progress    float64   `json:"progress"` // 0-100
	Message     string    `json:"message"`
	CurrentStep int       `json:"currentStep,omitempty"`
	TotalSteps  int       `json:"totalSteps,omitempty"`
}

func (c ProgressChunk) Kind() ChunkKind { return KindProgress }

// DataChunk carries partial data.
type DataChunk struct {
	Type     ChunkKind `json:"type"`
	Data     any       `json:"data"`
	IsFinal  bool      `json:"isFinal,omitempty"`
	Sequence int       `json:"sequence,omitempty"`
}

func (c DataChunk) Kind() ChunkKind { return KindData }

// CompleteChunk terminates a successful stream with the final data.
type CompleteChunk struct {
	Type       ChunkKind `json:"type"`
	Data       any       `json:"data"`
	DurationMs float64   `json:"durationMs,omitempty"`
}

func (c CompleteChunk) Kind() ChunkKind { return KindComplete }

// ErrorChunk terminates a failed stream.
type ErrorChunk struct {
	Type        ChunkKind             `json:"type"`
	Error       *command.CommandError `json:"error"`
	Recoverable bool                  `json:"recoverable,omitempty"`
}

func (c ErrorChunk) Kind() ChunkKind { return KindError }

// Progress builds a progress chunk, clamping progress to [0, 100].
func Progress(progress float64, message string) ProgressChunk {
	return ProgressChunk{
		Type:     KindProgress,
		Progress: clamp(progress),
		Message:  message,
	}
}

// ProgressSteps builds a progress chunk with step counters.
func ProgressSteps(progress float64, message string, current, total int) ProgressChunk {
	chunk := Progress(progress, message)
	chunk.CurrentStep = current
	chunk.TotalSteps = total
	return chunk
}

// Data builds a partial data chunk.
func Data(data any, isFinal bool) DataChunk {
	return DataChunk{Type: KindData, Data: data, IsFinal: isFinal}
}

// Complete builds the terminal success chunk.
func Complete(data any, durationMs float64) CompleteChunk {
	return CompleteChunk{Type: KindComplete, Data: data, DurationMs: durationMs}
}

// Error builds the terminal failure chunk.
func Error(err *command.CommandError, recoverable bool) ErrorChunk {
	return ErrorChunk{Type: KindError, Error: err, Recoverable: recoverable}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// CollectData gathers the payloads of all data chunks plus the final
// complete payload, in order.
func CollectData(chunks []Chunk) []any {
	var out []any
	for _, chunk := range chunks {
		switch c := chunk.(type) {
		case DataChunk:
			out = append(out, c.Data)
		case CompleteChunk:
			out = append(out, c.Data)
		}
	}
	return out
}

// Drain consumes a stream to its terminal chunk and folds it into a
// command result: the complete chunk's data on success, the error
// chunk's error on failure. A stream that closes without a terminal
// chunk is an internal error.
func Drain(stream <-chan Chunk) command.Result {
	for chunk := range stream {
		switch c := chunk.(type) {
		case CompleteChunk:
			return command.Success(c.Data)
		case ErrorChunk:
			return command.Failure(c.Error)
		}
	}
	return command.Failure(command.Internal("stream ended without a terminal chunk"))
}
