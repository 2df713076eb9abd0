package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/registry"
)

// CommandInfo is one entry in a registry-help listing. Category, tags
// and mutation are only populated in full format.
type CommandInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Mutation    *bool    `json:"mutation,omitempty"`
}

// HelpOutput is the registry-help payload.
type HelpOutput struct {
	Commands          []CommandInfo            `json:"commands"`
	Total             int                      `json:"total"`
	Filtered          bool                     `json:"filtered"`
	GroupedByCategory map[string][]CommandInfo `json:"groupedByCategory"`
}

// NewHelpCommand builds the registry-help definition. The filter
// matches case-insensitively against tags, category and name.
func NewHelpCommand(reg *registry.Registry) *command.Definition {
	schema := command.NewObjectSchema(
		command.Field{
			Name:        "filter",
			Type:        command.FieldString,
			Description: "Substring matched against tags, category and name",
		},
		command.Field{
			Name:        "format",
			Type:        command.FieldString,
			Description: "Output format",
			Enum:        []string{"brief", "full"},
			Default:     "brief",
		},
	)

	return command.NewDefinition("registry-help").
		Description("List all available commands with tags and grouping").
		Category(Category).
		Tags(Tags...).
		Schema(schema).
		Handler(func(_ context.Context, input any, _ *command.ExecutionContext) command.Result {
			fields, _ := input.(map[string]any)
			filter, _ := fields["filter"].(string)
			format, _ := fields["format"].(string)
			full := format == "full"

			defs := reg.List(registry.Filter{})
			if filter != "" {
				defs = matchFilter(defs, filter)
			}

			output := HelpOutput{
				Commands:          make([]CommandInfo, 0, len(defs)),
				GroupedByCategory: make(map[string][]CommandInfo),
				Filtered:          filter != "",
			}
			for _, def := range defs {
				info := CommandInfo{Name: def.Name(), Description: def.Description()}
				if full {
					info.Category = def.Category()
					info.Tags = def.Tags()
					mutation := def.Mutation()
					info.Mutation = &mutation
				}
				category := def.Category()
				if category == "" {
					category = "uncategorized"
				}
				output.GroupedByCategory[category] = append(output.GroupedByCategory[category], info)
				output.Commands = append(output.Commands, info)
			}
			output.Total = len(output.Commands)

			reasoning := fmt.Sprintf("Listing all %d available commands", output.Total)
			if filter != "" {
				reasoning = fmt.Sprintf("Found %d commands matching %q", output.Total, filter)
			}
			return command.Success(output,
				command.WithReasoning(reasoning),
				command.WithConfidence(1.0),
			)
		}).
		MustBuild()
}

func matchFilter(defs []*command.Definition, filter string) []*command.Definition {
	needle := strings.ToLower(filter)
	matched := make([]*command.Definition, 0, len(defs))
	for _, def := range defs {
		if strings.Contains(strings.ToLower(def.Name()), needle) ||
			strings.Contains(strings.ToLower(def.Category()), needle) ||
			tagContains(def.Tags(), needle) {
			matched = append(matched, def)
		}
	}
	return matched
}

func tagContains(tags []string, needle string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
