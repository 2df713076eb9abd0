package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/registry"
)

// SchemaInfo is one command's exported schema. JSON format fills
// InputSchema; typescript format fills Typescript.
type SchemaInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
	Typescript  string         `json:"typescript,omitempty"`
}

// SchemaOutput is the registry-schema payload.
type SchemaOutput struct {
	Schemas []SchemaInfo `json:"schemas"`
	Total   int          `json:"total"`
	Format  string       `json:"format"`
}

// NewSchemaCommand builds the registry-schema definition. Asking for an
// unknown command is not an error: it returns an empty export so agents
// can probe safely.
func NewSchemaCommand(reg *registry.Registry) *command.Definition {
	schema := command.NewObjectSchema(
		command.Field{
			Name:        "command",
			Type:        command.FieldString,
			Description: "Specific command name, or omit for all",
		},
		command.Field{
			Name:        "format",
			Type:        command.FieldString,
			Description: "Output format",
			Enum:        []string{"json", "typescript"},
			Default:     "json",
		},
	)

	return command.NewDefinition("registry-schema").
		Description("Export JSON schemas for all commands").
		Category(Category).
		Tags(Tags...).
		Schema(schema).
		Handler(func(_ context.Context, input any, _ *command.ExecutionContext) command.Result {
			fields, _ := input.(map[string]any)
			name, _ := fields["command"].(string)
			format, _ := fields["format"].(string)
			if format == "" {
				format = "json"
			}

			defs := reg.List(registry.Filter{})
			if name != "" {
				defs = matchName(defs, name)
				if len(defs) == 0 {
					return command.Success(
						SchemaOutput{Schemas: []SchemaInfo{}, Format: format},
						command.WithReasoning(fmt.Sprintf("Command %q not found", name)),
						command.WithConfidence(1.0),
					)
				}
			}

			schemas := make([]SchemaInfo, 0, len(defs))
			for _, def := range defs {
				info := SchemaInfo{Name: def.Name(), Description: def.Description()}
				if format == "typescript" {
					info.Typescript = typescriptInterface(def)
				} else {
					info.InputSchema = def.Schema().JSONSchema()
				}
				schemas = append(schemas, info)
			}

			reasoning := fmt.Sprintf("Exported %d command schemas", len(schemas))
			if name != "" {
				reasoning = fmt.Sprintf("Exported schema for %q", name)
			}
			return command.Success(
				SchemaOutput{Schemas: schemas, Total: len(schemas), Format: format},
				command.WithReasoning(reasoning),
				command.WithConfidence(1.0),
			)
		}).
		MustBuild()
}

func matchName(defs []*command.Definition, name string) []*command.Definition {
	for _, def := range defs {
		if def.Name() == name {
			return []*command.Definition{def}
		}
	}
	return nil
}

// fielded is satisfied by schemas that expose an ordered field list,
// which gives nicer typescript than walking the JSON-Schema map.
type fielded interface {
	Fields() []command.Field
}

func typescriptInterface(def *command.Definition) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("// %s", def.Description()))
	lines = append(lines, fmt.Sprintf("interface %sInput {", pascalCase(def.Name())))
	for _, f := range schemaFields(def.Schema()) {
		optional := "?"
		if f.Required {
			optional = ""
		}
		lines = append(lines, fmt.Sprintf("  %s%s: %s;", f.Name, optional, typescriptType(f)))
	}
	lines = append(lines, "}")
	return strings.Join(lines, "\n")
}

func schemaFields(schema command.InputSchema) []command.Field {
	if fs, ok := schema.(fielded); ok {
		return fs.Fields()
	}

	// Fall back to the descriptor for custom schemas. Property order is
	// not meaningful there, so sort for a stable export.
	doc := schema.JSONSchema()
	properties, _ := doc["properties"].(map[string]any)
	required := map[string]bool{}
	if names, ok := doc["required"].([]string); ok {
		for _, n := range names {
			required[n] = true
		}
	}
	fields := make([]command.Field, 0, len(properties))
	for name, prop := range properties {
		f := command.Field{Name: name, Required: required[name]}
		if p, ok := prop.(map[string]any); ok {
			if t, ok := p["type"].(string); ok {
				f.Type = command.FieldType(t)
			}
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

func typescriptType(f command.Field) string {
	if len(f.Enum) > 0 {
		quoted := make([]string, len(f.Enum))
		for i, v := range f.Enum {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		return strings.Join(quoted, " | ")
	}
	switch f.Type {
	case command.FieldString:
		return "string"
	case command.FieldNumber:
		return "number"
	case command.FieldBoolean:
		return "boolean"
	case command.FieldArray:
		return "unknown[]"
	case command.FieldObject:
		return "Record<string, unknown>"
	default:
		return "unknown"
	}
}

func pascalCase(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
