package bootstrap

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()

	handler := func(ctx context.Context, input any, ec *command.ExecutionContext) command.Result {
		return command.Success(input)
	}

	reg.MustRegister(
		command.NewDefinition("todo-create").
			Description("Create a new todo").
			Category("todo").
			Tags("todo", "write").
			Mutation().
			Schema(command.NewObjectSchema(
				command.Field{Name: "title", Type: command.FieldString, Description: "Todo title", Required: true},
				command.Field{Name: "priority", Type: command.FieldString, Description: "Priority level",
					Enum: []string{"low", "medium", "high"}, Default: "medium"},
			)).
			Handler(handler).
			MustBuild(),
		command.NewDefinition("todo-list").
			Description("List all todos").
			Category("todo").
			Tags("todo", "read").
			Schema(command.EmptySchema()).
			Handler(handler).
			MustBuild(),
		command.NewDefinition("user-get").
			Description("Get user by ID").
			Category("user").
			Tags("user", "read").
			Schema(command.NewObjectSchema(
				command.Field{Name: "id", Type: command.FieldString, Description: "User ID", Required: true},
			)).
			Handler(handler).
			MustBuild(),
	)
	reg.MustRegister(Commands(reg)...)
	return reg
}

func run(t *testing.T, reg *registry.Registry, name, input string) command.Result {
	t.Helper()
	res := reg.Execute(context.Background(), name, json.RawMessage(input), command.SurfaceCLI)
	require.True(t, res.Success, "%+v", res.Error)
	return res
}

func TestHelpCommand_ListAll(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-help", `{}`)

	output, ok := res.Data.(HelpOutput)
	require.True(t, ok)
	require.Equal(t, 6, output.Total)
	require.False(t, output.Filtered)
	require.NotNil(t, res.Confidence)
	require.Equal(t, 1.0, *res.Confidence)

	// Brief format omits the detail fields.
	require.Empty(t, output.Commands[0].Category)
	require.Nil(t, output.Commands[0].Mutation)
}

func TestHelpCommand_FilterByTag(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-help", `{"filter": "todo"}`)

	output := res.Data.(HelpOutput)
	require.Equal(t, 2, output.Total)
	require.True(t, output.Filtered)
	require.Contains(t, res.Reasoning, `matching "todo"`)
}

func TestHelpCommand_FilterMatchesCategory(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-help", `{"filter": "bootstrap"}`)

	output := res.Data.(HelpOutput)
	require.Equal(t, 3, output.Total)
}

func TestHelpCommand_FullFormat(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-help", `{"filter": "todo-create", "format": "full"}`)

	output := res.Data.(HelpOutput)
	require.Len(t, output.Commands, 1)
	info := output.Commands[0]
	require.Equal(t, "todo", info.Category)
	require.Equal(t, []string{"todo", "write"}, info.Tags)
	require.NotNil(t, info.Mutation)
	require.True(t, *info.Mutation)
}

func TestHelpCommand_GroupedByCategory(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-help", `{}`)

	output := res.Data.(HelpOutput)
	require.Len(t, output.GroupedByCategory["todo"], 2)
	require.Len(t, output.GroupedByCategory["user"], 1)
	require.Len(t, output.GroupedByCategory["bootstrap"], 3)
}

func TestHelpCommand_RejectsUnknownFormat(t *testing.T) {
	reg := testRegistry(t)
	res := reg.Execute(context.Background(), "registry-help",
		json.RawMessage(`{"format": "yaml"}`), command.SurfaceCLI)
	require.False(t, res.Success)
	require.Equal(t, command.CodeValidationError, res.Error.Code)
}

func TestSchemaCommand_JSON(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-schema", `{}`)

	output := res.Data.(SchemaOutput)
	require.Equal(t, 6, output.Total)
	require.Equal(t, "json", output.Format)

	var create SchemaInfo
	for _, s := range output.Schemas {
		if s.Name == "todo-create" {
			create = s
		}
	}
	require.NotNil(t, create.InputSchema)
	require.Empty(t, create.Typescript)

	properties := create.InputSchema["properties"].(map[string]any)
	require.Contains(t, properties, "title")
	priority := properties["priority"].(map[string]any)
	require.Equal(t, []string{"low", "medium", "high"}, priority["enum"])
	require.Equal(t, "medium", priority["default"])
	require.Equal(t, []string{"title"}, create.InputSchema["required"])
}

func TestSchemaCommand_Typescript(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-schema", `{"command": "todo-create", "format": "typescript"}`)

	output := res.Data.(SchemaOutput)
	require.Equal(t, 1, output.Total)
	require.Equal(t, "typescript", output.Format)

	ts := output.Schemas[0].Typescript
	require.Contains(t, ts, "interface TodoCreateInput {")
	require.Contains(t, ts, "title: string;")
	require.Contains(t, ts, `priority?: "low" | "medium" | "high";`)
	require.Empty(t, output.Schemas[0].InputSchema)
}

func TestSchemaCommand_NotFound(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-schema", `{"command": "nonexistent"}`)

	output := res.Data.(SchemaOutput)
	require.Empty(t, output.Schemas)
	require.Zero(t, output.Total)
	require.Contains(t, res.Reasoning, `"nonexistent" not found`)
}

func TestDocsCommand_All(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-docs", `{}`)

	output := res.Data.(DocsOutput)
	require.Equal(t, 6, output.CommandCount)
	require.Contains(t, output.Markdown, "# Command Documentation")
	require.Contains(t, output.Markdown, "## todo")
	require.Contains(t, output.Markdown, "### `todo-create`")
	require.Contains(t, output.Markdown, "**Mutation:** Yes")
	require.Contains(t, output.Markdown, "| title | string | Yes | Todo title |")
}

func TestDocsCommand_SingleCommand(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-docs", `{"command": "todo-list"}`)

	output := res.Data.(DocsOutput)
	require.Equal(t, 1, output.CommandCount)
	require.Contains(t, output.Markdown, "### `todo-list`")
	require.NotContains(t, output.Markdown, "todo-create")
	require.Contains(t, output.Markdown, "**Mutation:** No (read-only)")
}

func TestDocsCommand_NotFound(t *testing.T) {
	reg := testRegistry(t)
	res := run(t, reg, "registry-docs", `{"command": "nonexistent"}`)

	output := res.Data.(DocsOutput)
	require.Zero(t, output.CommandCount)
	require.Empty(t, output.Markdown)
}

func TestPascalCase(t *testing.T) {
	require.Equal(t, "TodoCreate", pascalCase("todo-create"))
	require.Equal(t, "RegistryHelp", pascalCase("registry-help"))
	require.Equal(t, "Batch", pascalCase("batch"))
}
