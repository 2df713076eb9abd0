// Package bootstrap provides the self-describing meta-commands every
// registry carries: registry-help, registry-schema and registry-docs.
// A client that knows nothing about a server can call registry-help and
// discover everything else from there.
package bootstrap

import (
	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/registry"
)

// Category groups the meta-commands in listings.
const Category = "bootstrap"

// Tags carried by every meta-command.
var Tags = []string{"bootstrap", "read", "safe"}

// Commands returns the meta-command definitions bound to reg. Register
// them after the domain commands so they describe the full table.
func Commands(reg *registry.Registry) []*command.Definition {
	return []*command.Definition{
		NewHelpCommand(reg),
		NewSchemaCommand(reg),
		NewDocsCommand(reg),
	}
}
