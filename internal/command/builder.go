package command

import (
	"errors"
	"fmt"
	"regexp"
)

// Builder errors
var (
	ErrEmptyName            = errors.New("command name cannot be empty")
	ErrInvalidName          = errors.New("command name must be kebab-case (lowercase letters, digits, hyphens)")
	ErrEmptyDescription     = errors.New("command description cannot be empty")
	ErrNilSchema            = errors.New("command must have an input schema")
	ErrNilHandler           = errors.New("command must have a handler")
	ErrDestructiveNoPrompt  = errors.New("destructive command must carry a confirm prompt")
	ErrUndoWithoutMutation  = errors.New("only mutation commands can be undoable")
	ErrDestructiveNoMutate  = errors.New("destructive command must also be a mutation")
)

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Builder provides a fluent API for constructing command definitions.
type Builder struct {
	def Definition
}

// NewDefinition starts a builder for the named command.
func NewDefinition(name string) *Builder {
	return &Builder{def: Definition{
		name:     name,
		version:  "1.0.0",
		exposure: map[Surface]bool{},
	}}
}

// Description sets the human-readable summary shown on every surface.
func (b *Builder) Description(d string) *Builder {
	b.def.description = d
	return b
}

// Category sets the grouping label.
func (b *Builder) Category(c string) *Builder {
	b.def.category = c
	return b
}

// Tags sets the discovery tags.
func (b *Builder) Tags(tags ...string) *Builder {
	b.def.tags = tags
	return b
}

// Version overrides the default "1.0.0" version.
func (b *Builder) Version(v string) *Builder {
	b.def.version = v
	return b
}

// Schema sets the input validator.
func (b *Builder) Schema(s InputSchema) *Builder {
	b.def.schema = s
	return b
}

// Handler sets the execution function.
func (b *Builder) Handler(h Handler) *Builder {
	b.def.handler = h
	return b
}

// Mutation marks the command as state-changing.
func (b *Builder) Mutation() *Builder {
	b.def.mutation = true
	return b
}

// Destructive marks the command as irreversibly removing data.
// Interactive surfaces show prompt before running it.
func (b *Builder) Destructive(prompt string) *Builder {
	b.def.destructive = true
	b.def.confirmPrompt = prompt
	return b
}

// Undoable names the command that reverses this one's effect.
func (b *Builder) Undoable(undoCommand string) *Builder {
	b.def.undoable = true
	b.def.undoCommand = undoCommand
	return b
}

// Expose sets per-surface visibility. Surfaces without an entry fall
// back to the registry default.
func (b *Builder) Expose(surface Surface, visible bool) *Builder {
	b.def.exposure[surface] = visible
	return b
}

// ErrorCodes documents the failure codes this command may return.
func (b *Builder) ErrorCodes(codes ...string) *Builder {
	b.def.errorCodes = codes
	return b
}

// Build validates required fields and returns the immutable definition.
func (b *Builder) Build() (*Definition, error) {
	if b.def.name == "" {
		return nil, ErrEmptyName
	}
	if !nameRe.MatchString(b.def.name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, b.def.name)
	}
	if b.def.description == "" {
		return nil, ErrEmptyDescription
	}
	if b.def.schema == nil {
		return nil, ErrNilSchema
	}
	if b.def.handler == nil {
		return nil, ErrNilHandler
	}
	if b.def.destructive && b.def.confirmPrompt == "" {
		return nil, ErrDestructiveNoPrompt
	}
	if b.def.destructive && !b.def.mutation {
		return nil, ErrDestructiveNoMutate
	}
	if b.def.undoable && !b.def.mutation {
		return nil, ErrUndoWithoutMutation
	}

	// The definition must not share state with the builder or the
	// caller's slices once built.
	def := b.def
	def.tags = dedupeTags(b.def.tags)
	def.errorCodes = append([]string(nil), b.def.errorCodes...)
	def.exposure = make(map[Surface]bool, len(b.def.exposure))
	for surface, visible := range b.def.exposure {
		def.exposure[surface] = visible
	}
	return &def, nil
}

// dedupeTags copies tags into a fresh slice, keeping the first
// occurrence of each tag in order.
func dedupeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// MustBuild is Build for static command tables where a failure is a
// programming error.
func (b *Builder) MustBuild() *Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}
