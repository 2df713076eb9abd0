// Package pipeline chains commands so the output of one step feeds the
// input of the next. Steps reference earlier results through variables
// ($prev, $first, $input, $steps[n], $steps.alias) and can be gated by
// conditions. The pipeline result aggregates confidence (weakest link),
// reasoning, warnings, sources and alternatives across steps.
package pipeline

import (
	"github.com/zjrosen/dispatch/internal/command"
)

// Step is one entry in a pipeline.
type Step struct {
	Command string         `json:"command"`
	Input   map[string]any `json:"input,omitempty"`
	As      string         `json:"as,omitempty"`   // alias for $steps.alias references
	When    Condition      `json:"when,omitempty"` // skip the step when false
	Stream  bool           `json:"stream,omitempty"`
}

// Options tunes pipeline execution.
type Options struct {
	// ContinueOnFailure keeps executing after a failed step. Off by
	// default: the first failure marks remaining steps skipped.
	ContinueOnFailure bool `json:"continueOnFailure,omitempty"`

	// TimeoutMs bounds the whole pipeline.
	TimeoutMs int64 `json:"timeoutMs,omitempty"`
}

// Request is an ordered list of steps plus options.
type Request struct {
	ID      string         `json:"id,omitempty"`
	Steps   []Step         `json:"steps"`
	Options Options        `json:"options,omitempty"`
	Input   map[string]any `json:"input,omitempty"` // available as $input
}

// StepStatus is the outcome of one step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailure StepStatus = "failure"
	StepSkipped StepStatus = "skipped"
)

// StepResult records one step's outcome. Agent-experience fields are
// copied from the command result so aggregation does not need it again.
type StepResult struct {
	Index           int                   `json:"index"`
	Alias           string                `json:"alias,omitempty"`
	Command         string                `json:"command"`
	Status          StepStatus            `json:"status"`
	Data            any                   `json:"data,omitempty"`
	Error           *command.CommandError `json:"error,omitempty"`
	ExecutionTimeMs float64               `json:"executionTimeMs"`
	Confidence      *float64              `json:"confidence,omitempty"`
	Reasoning       string                `json:"reasoning,omitempty"`
	Warnings        []command.Warning     `json:"warnings,omitempty"`
	Sources         []command.Source      `json:"sources,omitempty"`
	Alternatives    []command.Alternative `json:"alternatives,omitempty"`
}

// StepConfidence is one entry of the confidence breakdown.
type StepConfidence struct {
	Step       int     `json:"step"`
	Alias      string  `json:"alias,omitempty"`
	Command    string  `json:"command"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// StepReasoning is one step's reasoning with its position.
type StepReasoning struct {
	StepIndex int    `json:"stepIndex"`
	Command   string `json:"command"`
	Reasoning string `json:"reasoning"`
}

// Warning is a step warning annotated with its origin.
type Warning struct {
	command.Warning
	StepIndex int    `json:"stepIndex"`
	StepAlias string `json:"stepAlias,omitempty"`
}

// Source is a step source annotated with its origin.
type Source struct {
	command.Source
	StepIndex int `json:"stepIndex"`
}

// Alternative is a step alternative annotated with its origin.
type Alternative struct {
	command.Alternative
	StepIndex int `json:"stepIndex"`
}

// Metadata aggregates execution info across steps.
type Metadata struct {
	Confidence          float64          `json:"confidence"`
	ConfidenceBreakdown []StepConfidence `json:"confidenceBreakdown,omitempty"`
	ReasoningSteps      []StepReasoning  `json:"reasoningSteps,omitempty"`
	Warnings            []Warning        `json:"warnings,omitempty"`
	Sources             []Source         `json:"sources,omitempty"`
	Alternatives        []Alternative    `json:"alternatives,omitempty"`
	ExecutionTimeMs     float64          `json:"executionTimeMs"`
	CompletedSteps      int              `json:"completedSteps"`
	TotalSteps          int              `json:"totalSteps"`
}

// Result is the outcome of a pipeline: the last successful step's data
// plus aggregated metadata and every step result.
type Result struct {
	Data     any          `json:"data,omitempty"`
	Metadata Metadata     `json:"metadata"`
	Steps    []StepResult `json:"steps"`
}

// Success reports whether no step failed.
func (r Result) Success() bool {
	for _, step := range r.Steps {
		if step.Status == StepFailure {
			return false
		}
	}
	return true
}

// aggregate builds the pipeline metadata from step results.
func aggregate(steps []StepResult, totalMs float64) Metadata {
	meta := Metadata{
		ExecutionTimeMs: totalMs,
		TotalSteps:      len(steps),
	}

	minConfidence := -1.0
	for _, s := range steps {
		if s.Status != StepSuccess {
			collectAnnotated(&meta, s)
			continue
		}
		meta.CompletedSteps++

		confidence := 1.0
		if s.Confidence != nil {
			confidence = *s.Confidence
		}
		if minConfidence < 0 || confidence < minConfidence {
			minConfidence = confidence
		}
		meta.ConfidenceBreakdown = append(meta.ConfidenceBreakdown, StepConfidence{
			Step:       s.Index,
			Alias:      s.Alias,
			Command:    s.Command,
			Confidence: confidence,
			Reasoning:  s.Reasoning,
		})
		if s.Reasoning != "" {
			meta.ReasoningSteps = append(meta.ReasoningSteps, StepReasoning{
				StepIndex: s.Index,
				Command:   s.Command,
				Reasoning: s.Reasoning,
			})
		}
		collectAnnotated(&meta, s)
	}

	// Weakest link: a chain is only as trustworthy as its least
	// confident step. No successful steps means no confidence at all.
	if minConfidence < 0 {
		minConfidence = 0
	}
	meta.Confidence = minConfidence
	return meta
}

func collectAnnotated(meta *Metadata, s StepResult) {
	for _, w := range s.Warnings {
		meta.Warnings = append(meta.Warnings, Warning{Warning: w, StepIndex: s.Index, StepAlias: s.Alias})
	}
	for _, src := range s.Sources {
		meta.Sources = append(meta.Sources, Source{Source: src, StepIndex: s.Index})
	}
	for _, alt := range s.Alternatives {
		meta.Alternatives = append(meta.Alternatives, Alternative{Alternative: alt, StepIndex: s.Index})
	}
}
