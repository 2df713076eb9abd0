// Package direct is the in-process client surface. It calls the
// registry exactly the way a wire transport would, so a result obtained
// here is byte-identical to one obtained over MCP for the same input.
package direct

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/registry"
)

// maxSuggestions caps the did-you-mean list on unknown commands.
const maxSuggestions = 3

// Client executes commands in-process.
type Client struct {
	reg     *registry.Registry
	surface command.Surface
}

// Option configures a Client.
type Option func(*Client)

// WithSurface overrides the surface calls are attributed to. The
// default is the agent surface.
func WithSurface(surface command.Surface) Option {
	return func(c *Client) {
		c.surface = surface
	}
}

// NewClient creates a client bound to reg.
func NewClient(reg *registry.Registry, opts ...Option) *Client {
	c := &Client{reg: reg, surface: command.SurfaceAgent}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call executes name with args. Args may be nil, a json.RawMessage, or
// any JSON-marshalable value. An unknown name fails with
// COMMAND_NOT_FOUND carrying close-match suggestions.
func (c *Client) Call(ctx context.Context, name string, args any) command.Result {
	raw, err := toRaw(args)
	if err != nil {
		return command.Failure(command.Validation(
			fmt.Sprintf("Arguments for '%s' are not JSON-serializable: %v", name, err), ""))
	}

	if _, ok := c.reg.Get(name); !ok {
		return c.unknownCommand(name)
	}
	return c.reg.Execute(ctx, name, raw, c.surface)
}

// CallRaw is Call for pre-encoded arguments.
func (c *Client) CallRaw(ctx context.Context, name string, raw json.RawMessage) command.Result {
	if _, ok := c.reg.Get(name); !ok {
		return c.unknownCommand(name)
	}
	return c.reg.Execute(ctx, name, raw, c.surface)
}

// Names returns the registered command names, for completion and
// palette listings.
func (c *Client) Names() []string {
	return c.reg.Names()
}

// Surface returns the surface this client reports to the registry.
func (c *Client) Surface() command.Surface {
	return c.surface
}

func (c *Client) unknownCommand(name string) command.Result {
	suggestions := Suggest(name, c.reg.Names(), maxSuggestions)
	log.Debug(log.CatDirect, "unknown command",
		"command", name,
		"suggestions", strings.Join(suggestions, ","),
	)

	cmdErr := command.NewError(
		command.CodeCommandNotFound,
		fmt.Sprintf("Command '%s' not found", name),
	)
	if len(suggestions) > 0 {
		cmdErr = cmdErr.
			WithSuggestion(fmt.Sprintf("Did you mean '%s'?", suggestions[0])).
			WithDetails(map[string]any{"didYouMean": suggestions})
	} else {
		cmdErr = cmdErr.WithSuggestion("Run registry-help to list available commands")
	}
	return command.Failure(cmdErr)
}

// Suggest returns up to max names fuzzy-matching input, best first.
func Suggest(input string, names []string, max int) []string {
	matches := fuzzy.Find(input, names)
	if len(matches) > max {
		matches = matches[:max]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}

func toRaw(args any) (json.RawMessage, error) {
	switch v := args.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	case string:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(v)
	}
}
