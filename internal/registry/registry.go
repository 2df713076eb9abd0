// Package registry holds command definitions and executes them through
// the middleware pipeline. It is the single entry point every surface
// (CLI, MCP, palette, in-process client) funnels through, so a command
// behaves identically no matter where the call came from.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/middleware"
)

// Registry errors
var (
	ErrNilDefinition    = errors.New("definition cannot be nil")
	ErrDuplicateCommand = errors.New("command already registered")
)

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultExposure sets the exposure used for surfaces a definition
// does not mention. The default is exposed.
func WithDefaultExposure(exposed bool) Option {
	return func(r *Registry) {
		r.defaultExposure = exposed
	}
}

// WithMiddleware installs the middleware pipeline. Order is the
// caller's: the first middleware sees calls first and results last.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(r *Registry) {
		r.middlewares = mws
	}
}

// WithTraceIDGenerator overrides how trace IDs are minted, mainly for
// deterministic tests.
func WithTraceIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newTraceID = fn
	}
}

// WithClock overrides the clock used for metadata timestamps, mainly
// for deterministic tests.
func WithClock(fn func() time.Time) Option {
	return func(r *Registry) {
		r.now = fn
	}
}

// Registry is safe for concurrent use. Reads dominate: commands are
// registered once at startup and executed many times after.
type Registry struct {
	mu              sync.RWMutex
	commands        map[string]*command.Definition
	defaultExposure bool
	middlewares     []middleware.Middleware
	newTraceID      func() string
	now             func() time.Time
	invoker         middleware.Invoker
}

// New creates a registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		commands:        make(map[string]*command.Definition),
		defaultExposure: true,
		newTraceID:      uuid.NewString,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.invoker = middleware.Chain(r.invoke, r.middlewares...)
	return r
}

// Register adds a definition. Registering a name twice is a programming
// error and fails loudly.
func (r *Registry) Register(def *command.Definition) error {
	if def == nil {
		return ErrNilDefinition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[def.Name()]; exists {
		log.Error(log.CatRegistry, "duplicate command registration", "command", def.Name())
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, def.Name())
	}

	r.commands[def.Name()] = def
	log.Debug(log.CatRegistry, "command registered",
		"command", def.Name(),
		"category", def.Category(),
		"mutation", def.Mutation(),
	)
	return nil
}

// MustRegister is Register for static command tables assembled at
// startup.
func (r *Registry) MustRegister(defs ...*command.Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*command.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.commands[name]
	return def, ok
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TagMatch selects how Filter.Tags combine.
type TagMatch string

const (
	MatchAll TagMatch = "all"
	MatchAny TagMatch = "any"
)

// Filter narrows List results. Zero values mean no constraint.
type Filter struct {
	Category string
	Tags     []string
	TagMatch TagMatch // defaults to MatchAll
	Surface  command.Surface
}

// List returns definitions matching the filter, sorted by name.
func (r *Registry) List(filter Filter) []*command.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	match := filter.TagMatch
	if match == "" {
		match = MatchAll
	}

	result := make([]*command.Definition, 0, len(r.commands))
	for _, def := range r.commands {
		if filter.Category != "" && def.Category() != filter.Category {
			continue
		}
		if filter.Surface != "" && !def.ExposedTo(filter.Surface, r.defaultExposure) {
			continue
		}
		if len(filter.Tags) > 0 && !matchesTags(def, filter.Tags, match) {
			continue
		}
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

func matchesTags(def *command.Definition, tags []string, match TagMatch) bool {
	for _, tag := range tags {
		if def.HasTag(tag) {
			if match == MatchAny {
				return true
			}
		} else if match == MatchAll {
			return false
		}
	}
	return match == MatchAll
}

// DefaultExposure returns the registry-wide exposure default.
func (r *Registry) DefaultExposure() bool {
	return r.defaultExposure
}

// Execute runs a command end to end: lookup, exposure check, schema
// validation, then the middleware-wrapped handler. It never returns an
// error; every failure is a structured Result.
func (r *Registry) Execute(ctx context.Context, name string, raw json.RawMessage, surface command.Surface) command.Result {
	def, ok := r.Get(name)
	if !ok {
		return r.finish(nil, command.Failure(command.NewError(
			command.CodeCommandNotFound,
			fmt.Sprintf("Command '%s' not found", name),
		).WithSuggestion("Run registry-help to list available commands")), "", "")
	}

	if !def.ExposedTo(surface, r.defaultExposure) {
		log.Warn(log.CatRegistry, "command not exposed to surface",
			"command", name,
			"surface", string(surface),
		)
		return r.finish(def, command.Failure(command.NewError(
			command.CodeCommandNotExposed,
			fmt.Sprintf("Command '%s' is not available on the %s surface", name, surface),
		).WithDetails(map[string]any{"surface": string(surface)})), "", "")
	}

	input, fieldErrs := def.Schema().Validate(raw)
	if fieldErrs != nil {
		return r.finish(def, command.Failure(command.Validation(
			fmt.Sprintf("Invalid input for '%s': %s", name, fieldErrs.Error()),
			"",
		).WithDetails(fieldErrs.Details())), "", "")
	}

	traceID := r.newTraceID()
	ec := command.NewExecutionContext(surface, traceID)

	if ctx.Err() != nil {
		return r.finish(def, command.Failure(command.NewError(
			command.CodeCommandCancelled,
			"Execution cancelled before the command started",
		)), traceID, def.Version())
	}

	result := r.invoker(ctx, name, input, ec)
	return r.finish(def, result, traceID, def.Version())
}

// invoke is the innermost invoker: the actual handler call, with panic
// recovery so a buggy handler cannot take the process down.
func (r *Registry) invoke(ctx context.Context, name string, input any, ec *command.ExecutionContext) (result command.Result) {
	def, ok := r.Get(name)
	if !ok {
		return command.Failuref(command.CodeCommandNotFound, "Command '%s' not found", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error(log.CatRegistry, "handler panicked",
				"command", name,
				"trace_id", ec.TraceID,
				"panic", fmt.Sprintf("%v", rec),
			)
			result = command.Failure(command.NewError(
				command.CodeCommandExecutionError,
				fmt.Sprintf("Command '%s' failed: %v", name, rec),
			).WithRetryable(true))
		}
	}()

	return def.Handler()(ctx, input, ec)
}

// finish stamps execution metadata on its way out.
func (r *Registry) finish(def *command.Definition, result command.Result, traceID, version string) command.Result {
	meta := result.EnsureMetadata()
	if meta.Timestamp == "" {
		meta.Timestamp = r.now().UTC().Format(time.RFC3339)
	}
	if traceID != "" {
		meta.TraceID = traceID
	}
	if version != "" {
		meta.CommandVersion = version
	}
	return result
}
