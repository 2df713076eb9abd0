package command

import "context"

// Handler executes a command. input is the value produced by the
// definition's schema. Handlers report failure through the returned
// Result, never by panicking; the registry converts panics into
// COMMAND_EXECUTION_ERROR failures as a last resort.
type Handler func(ctx context.Context, input any, ec *ExecutionContext) Result

// Definition is an immutable command description. Construct with
// NewDefinition; fields are private so a registered command cannot be
// mutated after the fact.
type Definition struct {
	name          string
	description   string
	category      string
	tags          []string
	version       string
	schema        InputSchema
	handler       Handler
	mutation      bool
	destructive   bool
	confirmPrompt string
	undoable      bool
	undoCommand   string
	exposure      map[Surface]bool
	errorCodes    []string
}

// Name returns the command's unique kebab-case identifier.
func (d *Definition) Name() string { return d.name }

// Description returns the human-readable summary.
func (d *Definition) Description() string { return d.description }

// Category returns the grouping label.
func (d *Definition) Category() string { return d.category }

// Tags returns a copy of the discovery tags.
func (d *Definition) Tags() []string {
	out := make([]string, len(d.tags))
	copy(out, d.tags)
	return out
}

// Version returns the command version string.
func (d *Definition) Version() string { return d.version }

// Schema returns the input validator.
func (d *Definition) Schema() InputSchema { return d.schema }

// Handler returns the execution function.
func (d *Definition) Handler() Handler { return d.handler }

// Mutation reports whether the command changes state.
func (d *Definition) Mutation() bool { return d.mutation }

// Destructive reports whether the command irreversibly removes data.
func (d *Definition) Destructive() bool { return d.destructive }

// ConfirmPrompt returns the confirmation text interactive surfaces
// should show before running a destructive command.
func (d *Definition) ConfirmPrompt() string { return d.confirmPrompt }

// Undoable reports whether the effect can be reversed.
func (d *Definition) Undoable() bool { return d.undoable }

// UndoCommand returns the name of the command that reverses this one.
func (d *Definition) UndoCommand() string { return d.undoCommand }

// ErrorCodes returns the failure codes this command may produce, for
// documentation surfaces.
func (d *Definition) ErrorCodes() []string {
	out := make([]string, len(d.errorCodes))
	copy(out, d.errorCodes)
	return out
}

// ExposedTo reports whether the command is visible on surface. When the
// definition carries no explicit entry for the surface, def is used as
// the registry-wide default.
func (d *Definition) ExposedTo(surface Surface, def bool) bool {
	if v, ok := d.exposure[surface]; ok {
		return v
	}
	return def
}

// HasTag reports whether the command carries tag.
func (d *Definition) HasTag(tag string) bool {
	for _, t := range d.tags {
		if t == tag {
			return true
		}
	}
	return false
}
