// Package batch executes multiple commands in one request through a
// bounded worker pool. The batch result reports per-command outcomes
// plus summary statistics; the batch as a whole succeeds only when
// every command does.
package batch

import (
	"context"
	"encoding/json"

	"github.com/zjrosen/dispatch/internal/command"
)

// Exec runs one command. The registry's Execute method satisfies it;
// tests substitute fakes.
type Exec func(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result

// Command is a single entry in a batch request.
type Command struct {
	ID       string          `json:"id"`
	Command  string          `json:"command"`
	Input    json.RawMessage `json:"input,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Priority int             `json:"priority,omitempty"`
}

// Options tunes batch execution.
type Options struct {
	// ContinueOnError keeps executing after a failure. Off by
	// default: the first failure skips everything not yet started.
	ContinueOnError bool `json:"continueOnError,omitempty"`

	// MaxConcurrency bounds the worker pool. Zero means sequential.
	MaxConcurrency int `json:"maxConcurrency,omitempty"`

	// TimeoutMs bounds the whole batch.
	TimeoutMs int64 `json:"timeoutMs,omitempty"`

	// MaxFailures aborts the batch once this many commands fail.
	// Only meaningful with ContinueOnError.
	MaxFailures int `json:"maxFailures,omitempty"`
}

// Request is a batch of commands plus options.
type Request struct {
	Commands []Command      `json:"commands"`
	Options  Options        `json:"options,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// CommandResult pairs a batch entry with its outcome.
type CommandResult struct {
	ID         string         `json:"id"`
	Command    string         `json:"command"`
	Result     command.Result `json:"result"`
	Skipped    bool           `json:"skipped,omitempty"`
	DurationMs float64        `json:"durationMs,omitempty"`
}

// Summary aggregates the batch outcome.
type Summary struct {
	Total             int      `json:"total"`
	Succeeded         int      `json:"succeeded"`
	Failed            int      `json:"failed"`
	Skipped           int      `json:"skipped"`
	AverageConfidence *float64 `json:"averageConfidence,omitempty"`
}

// SuccessRate returns succeeded/total, zero for an empty batch.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total)
}

// Timing records when the batch ran.
type Timing struct {
	StartedAt string  `json:"startedAt"`
	EndedAt   string  `json:"endedAt,omitempty"`
	TotalMs   float64 `json:"totalMs,omitempty"`
	AverageMs float64 `json:"averageMs,omitempty"`
}

// Result is the complete outcome of a batch.
type Result struct {
	Success bool                  `json:"success"`
	Results []CommandResult       `json:"results"`
	Summary Summary               `json:"summary"`
	Timing  Timing                `json:"timing"`
	Error   *command.CommandError `json:"error,omitempty"`
}

// summarize derives the summary from per-command results.
func summarize(results []CommandResult) Summary {
	summary := Summary{Total: len(results)}

	var confidenceSum float64
	var confidenceCount int
	for _, r := range results {
		switch {
		case r.Skipped:
			summary.Skipped++
		case r.Result.Success:
			summary.Succeeded++
			if r.Result.Confidence != nil {
				confidenceSum += *r.Result.Confidence
				confidenceCount++
			}
		default:
			summary.Failed++
		}
	}

	if confidenceCount > 0 {
		avg := confidenceSum / float64(confidenceCount)
		summary.AverageConfidence = &avg
	}
	return summary
}
