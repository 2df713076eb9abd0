package todo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/dispatch/internal/command"
)

const category = "todo"

var (
	readTags  = []string{"todo", "read"}
	writeTags = []string{"todo", "write"}
)

// Commands returns the full todo command set backed by store.
func Commands(store Store) []*command.Definition {
	return []*command.Definition{
		createCommand(store),
		getCommand(store),
		listCommand(store),
		updateCommand(store),
		deleteCommand(store),
		toggleCommand(store),
		clearCompletedCommand(store),
		statsCommand(store),
	}
}

var priorityField = command.Field{
	Name:        "priority",
	Type:        command.FieldString,
	Description: "Priority level",
	Enum:        []string{"low", "medium", "high"},
	Default:     "medium",
}

var idField = command.Field{
	Name:        "id",
	Type:        command.FieldString,
	Description: "Todo ID",
	Required:    true,
}

// storeFailure maps store errors onto the result taxonomy.
func storeFailure(err error, id string) command.Result {
	if errors.Is(err, ErrNotFound) {
		return command.Failure(command.NotFound("Todo", id))
	}
	return command.Failure(command.Internal(err.Error()))
}

func createCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-create").
		Description("Create a new todo item").
		Category(category).
		Tags(writeTags...).
		Mutation().
		ErrorCodes(command.CodeValidationError).
		Schema(command.NewObjectSchema(
			command.Field{Name: "title", Type: command.FieldString, Description: "Todo title", Required: true},
			command.Field{Name: "description", Type: command.FieldString, Description: "Optional description"},
			priorityField,
		)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			fields := input.(map[string]any)
			title, _ := fields["title"].(string)
			if strings.TrimSpace(title) == "" {
				return command.Failure(command.Validation("Title cannot be empty", ""))
			}
			description, _ := fields["description"].(string)
			priority, _ := fields["priority"].(string)

			t, err := store.Create(ctx, title, description, Priority(priority))
			if err != nil {
				return storeFailure(err, "")
			}
			return command.Success(t,
				command.WithReasoning(fmt.Sprintf("Created todo '%s'", t.Title)),
				command.WithConfidence(1.0),
				command.WithSuggestions(
					fmt.Sprintf("Run todo-get with id '%s' to view it", t.ID),
					"Run todo-list to see all todos",
				),
			)
		}).
		MustBuild()
}

func getCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-get").
		Description("Get a specific todo by ID").
		Category(category).
		Tags(readTags...).
		ErrorCodes(command.CodeNotFound).
		Schema(command.NewObjectSchema(idField)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			id := input.(map[string]any)["id"].(string)
			t, err := store.Get(ctx, id)
			if err != nil {
				return storeFailure(err, id)
			}
			return command.Success(t)
		}).
		MustBuild()
}

// ListOutput is the todo-list payload.
type ListOutput struct {
	Todos   []Todo `json:"todos"`
	Total   int    `json:"total"`
	HasMore bool   `json:"hasMore"`
}

func listCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-list").
		Description("List todo items with filtering and sorting").
		Category(category).
		Tags(readTags...).
		Schema(command.NewObjectSchema(
			command.Field{Name: "completed", Type: command.FieldBoolean, Description: "Filter by completion status"},
			command.Field{Name: "priority", Type: command.FieldString, Description: "Filter by priority",
				Enum: []string{"low", "medium", "high"}},
			command.Field{Name: "search", Type: command.FieldString, Description: "Substring matched against title and description"},
			command.Field{Name: "sortBy", Type: command.FieldString, Description: "Sort key",
				Enum: []string{"createdAt", "updatedAt", "title", "priority"}, Default: "createdAt"},
			command.Field{Name: "sortOrder", Type: command.FieldString, Description: "Sort direction",
				Enum: []string{"asc", "desc"}, Default: "desc"},
			command.Field{Name: "limit", Type: command.FieldNumber, Description: "Page size, 0 for all"},
			command.Field{Name: "offset", Type: command.FieldNumber, Description: "Page offset"},
		)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			fields := input.(map[string]any)
			filter := Filter{
				Search:    stringField(fields, "search"),
				SortBy:    stringField(fields, "sortBy"),
				SortOrder: stringField(fields, "sortOrder"),
				Limit:     intField(fields, "limit"),
				Offset:    intField(fields, "offset"),
			}
			if completed, ok := fields["completed"].(bool); ok {
				filter.Completed = &completed
			}
			filter.Priority = Priority(stringField(fields, "priority"))

			todos, total, err := store.List(ctx, filter)
			if err != nil {
				return storeFailure(err, "")
			}
			hasMore := filter.Limit > 0 && filter.Offset+len(todos) < total
			return command.Success(
				ListOutput{Todos: todos, Total: total, HasMore: hasMore},
				command.WithReasoning(fmt.Sprintf("Found %d todo(s)", total)),
			)
		}).
		MustBuild()
}

func updateCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-update").
		Description("Update a todo item").
		Category(category).
		Tags(writeTags...).
		Mutation().
		ErrorCodes(command.CodeNotFound, command.CodeNoChanges).
		Schema(command.NewObjectSchema(
			idField,
			command.Field{Name: "title", Type: command.FieldString, Description: "New title"},
			command.Field{Name: "description", Type: command.FieldString, Description: "New description"},
			command.Field{Name: "priority", Type: command.FieldString, Description: "New priority",
				Enum: []string{"low", "medium", "high"}},
			command.Field{Name: "completed", Type: command.FieldBoolean, Description: "New completion status"},
		)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			fields := input.(map[string]any)
			id := fields["id"].(string)

			current, err := store.Get(ctx, id)
			if err != nil {
				return storeFailure(err, id)
			}

			changes := diffChanges(current, fields)
			if changes.Empty() {
				return command.Failure(
					command.NewError(command.CodeNoChanges,
						fmt.Sprintf("Todo '%s' already matches the requested values", id)).
						WithSuggestion("Provide at least one field that differs from the current value"),
				)
			}

			t, err := store.Update(ctx, id, changes)
			if err != nil {
				return storeFailure(err, id)
			}
			return command.Success(t,
				command.WithReasoning(fmt.Sprintf("Updated todo '%s'", t.ID)),
			)
		}).
		MustBuild()
}

// diffChanges keeps only the provided fields that actually differ from
// the current todo.
func diffChanges(current Todo, fields map[string]any) Changes {
	var changes Changes
	if title, ok := fields["title"].(string); ok && title != current.Title {
		changes.Title = &title
	}
	if description, ok := fields["description"].(string); ok && description != current.Description {
		changes.Description = &description
	}
	if p, ok := fields["priority"].(string); ok && Priority(p) != current.Priority {
		priority := Priority(p)
		changes.Priority = &priority
	}
	if completed, ok := fields["completed"].(bool); ok && completed != current.Completed {
		changes.Completed = &completed
	}
	return changes
}

// DeleteOutput is the todo-delete payload.
type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func deleteCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-delete").
		Description("Delete a todo item").
		Category(category).
		Tags(writeTags...).
		Mutation().
		Destructive("This permanently deletes the todo. Continue?").
		ErrorCodes(command.CodeNotFound).
		Schema(command.NewObjectSchema(idField)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			id := input.(map[string]any)["id"].(string)
			t, err := store.Delete(ctx, id)
			if err != nil {
				return storeFailure(err, id)
			}
			return command.Success(
				DeleteOutput{ID: id, Deleted: true},
				command.WithReasoning(fmt.Sprintf("Deleted todo '%s'", t.Title)),
			)
		}).
		MustBuild()
}

func toggleCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-toggle").
		Description("Toggle completion status").
		Category(category).
		Tags(writeTags...).
		Mutation().
		ErrorCodes(command.CodeNotFound).
		Schema(command.NewObjectSchema(idField)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			id := input.(map[string]any)["id"].(string)
			t, err := store.Toggle(ctx, id)
			if err != nil {
				return storeFailure(err, id)
			}
			return command.Success(t,
				command.WithReasoning(fmt.Sprintf("Toggled todo '%s' to %t", t.ID, t.Completed)),
			)
		}).
		MustBuild()
}

// ClearOutput is the todo-clear-completed payload.
type ClearOutput struct {
	Cleared int `json:"cleared"`
}

func clearCompletedCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-clear-completed").
		Description("Clear completed todos").
		Category(category).
		Tags(writeTags...).
		Mutation().
		Destructive("This permanently deletes completed todos. Continue?").
		Schema(command.NewObjectSchema(
			command.Field{Name: "all", Type: command.FieldBoolean,
				Description: "If true, clear all todos regardless of status", Default: false},
		)).
		Handler(func(ctx context.Context, input any, _ *command.ExecutionContext) command.Result {
			all, _ := input.(map[string]any)["all"].(bool)
			n, err := store.Clear(ctx, all)
			if err != nil {
				return storeFailure(err, "")
			}
			reasoning := fmt.Sprintf("Cleared %d completed todos", n)
			if all {
				reasoning = fmt.Sprintf("Cleared all %d todos", n)
			}
			return command.Success(ClearOutput{Cleared: n}, command.WithReasoning(reasoning))
		}).
		MustBuild()
}

func statsCommand(store Store) *command.Definition {
	return command.NewDefinition("todo-stats").
		Description("Get todo statistics").
		Category(category).
		Tags(readTags...).
		Schema(command.EmptySchema()).
		Handler(func(ctx context.Context, _ any, _ *command.ExecutionContext) command.Result {
			stats, err := store.Stats(ctx)
			if err != nil {
				return storeFailure(err, "")
			}
			return command.Success(stats)
		}).
		MustBuild()
}

func stringField(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

func intField(fields map[string]any, name string) int {
	f, _ := fields[name].(float64)
	return int(f)
}
