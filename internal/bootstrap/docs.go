package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/registry"
)

// DocsOutput is the registry-docs payload.
type DocsOutput struct {
	Markdown     string `json:"markdown"`
	CommandCount int    `json:"commandCount"`
}

// NewDocsCommand builds the registry-docs definition. The markdown is
// grouped by category with commands sorted inside each group.
func NewDocsCommand(reg *registry.Registry) *command.Definition {
	schema := command.NewObjectSchema(
		command.Field{
			Name:        "command",
			Type:        command.FieldString,
			Description: "Specific command name, or omit for all",
		},
	)

	return command.NewDefinition("registry-docs").
		Description("Get detailed documentation for commands").
		Category(Category).
		Tags(Tags...).
		Schema(schema).
		Handler(func(_ context.Context, input any, _ *command.ExecutionContext) command.Result {
			fields, _ := input.(map[string]any)
			name, _ := fields["command"].(string)

			defs := reg.List(registry.Filter{})
			if name != "" {
				defs = matchName(defs, name)
				if len(defs) == 0 {
					return command.Success(
						DocsOutput{},
						command.WithReasoning(fmt.Sprintf("Command %q not found", name)),
						command.WithConfidence(1.0),
					)
				}
			}

			reasoning := fmt.Sprintf("Generated documentation for %d commands", len(defs))
			if name != "" {
				reasoning = fmt.Sprintf("Generated documentation for %q", name)
			}
			return command.Success(
				DocsOutput{Markdown: renderDocs(defs), CommandCount: len(defs)},
				command.WithReasoning(reasoning),
				command.WithConfidence(1.0),
			)
		}).
		MustBuild()
}

func renderDocs(defs []*command.Definition) string {
	byCategory := make(map[string][]*command.Definition)
	for _, def := range defs {
		category := def.Category()
		if category == "" {
			category = "General"
		}
		byCategory[category] = append(byCategory[category], def)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var lines []string
	lines = append(lines, "# Command Documentation", "")
	for _, category := range categories {
		lines = append(lines, fmt.Sprintf("## %s", category), "")
		group := byCategory[category]
		sort.Slice(group, func(i, j int) bool { return group[i].Name() < group[j].Name() })
		for _, def := range group {
			lines = append(lines, renderCommand(def))
		}
	}
	return strings.Join(lines, "\n")
}

func renderCommand(def *command.Definition) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("### `%s`", def.Name()), "")
	lines = append(lines, def.Description(), "")

	if tags := def.Tags(); len(tags) > 0 {
		quoted := make([]string, len(tags))
		for i, tag := range tags {
			quoted[i] = fmt.Sprintf("`%s`", tag)
		}
		lines = append(lines, fmt.Sprintf("**Tags:** %s", strings.Join(quoted, ", ")), "")
	}

	mutation := "No (read-only)"
	if def.Mutation() {
		mutation = "Yes"
	}
	lines = append(lines, fmt.Sprintf("**Mutation:** %s", mutation), "")

	if def.Destructive() {
		lines = append(lines, fmt.Sprintf("**Destructive:** Yes. %s", def.ConfirmPrompt()), "")
	}

	if params := schemaFields(def.Schema()); len(params) > 0 {
		lines = append(lines, "**Parameters:**", "")
		lines = append(lines, "| Name | Type | Required | Description |")
		lines = append(lines, "|------|------|----------|-------------|")
		for _, f := range params {
			required := "No"
			if f.Required {
				required = "Yes"
			}
			lines = append(lines, fmt.Sprintf("| %s | %s | %s | %s |",
				f.Name, f.Type, required, f.Description))
		}
		lines = append(lines, "")
	}

	lines = append(lines, "---", "")
	return strings.Join(lines, "\n")
}
