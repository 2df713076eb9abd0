package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/registry"
)

func todoRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	reg.MustRegister(Commands(NewMemoryStore())...)
	return reg
}

func execute(t *testing.T, reg *registry.Registry, name, input string) command.Result {
	t.Helper()
	return reg.Execute(context.Background(), name, json.RawMessage(input), command.SurfaceCLI)
}

func createTodo(t *testing.T, reg *registry.Registry, input string) Todo {
	t.Helper()
	res := execute(t, reg, "todo-create", input)
	require.True(t, res.Success, "%+v", res.Error)
	todo, ok := res.Data.(Todo)
	require.True(t, ok)
	return todo
}

func TestCreateCommand(t *testing.T) {
	reg := todoRegistry(t)
	res := execute(t, reg, "todo-create", `{"title": "Buy milk", "priority": "high"}`)
	require.True(t, res.Success)

	todo := res.Data.(Todo)
	require.NotEmpty(t, todo.ID)
	require.Equal(t, "Buy milk", todo.Title)
	require.Equal(t, PriorityHigh, todo.Priority)

	require.Equal(t, "Created todo 'Buy milk'", res.Reasoning)
	require.NotNil(t, res.Confidence)
	require.Equal(t, 1.0, *res.Confidence)
	require.NotEmpty(t, res.Suggestions)
}

func TestCreateCommand_EmptyTitle(t *testing.T) {
	reg := todoRegistry(t)
	res := execute(t, reg, "todo-create", `{"title": "   "}`)
	require.False(t, res.Success)
	require.Equal(t, command.CodeValidationError, res.Error.Code)
	require.Equal(t, "Title cannot be empty", res.Error.Message)
}

func TestCreateCommand_MissingTitle(t *testing.T) {
	reg := todoRegistry(t)
	res := execute(t, reg, "todo-create", `{}`)
	require.False(t, res.Success)
	require.Equal(t, command.CodeValidationError, res.Error.Code)
}

func TestCreateCommand_InvalidPriority(t *testing.T) {
	reg := todoRegistry(t)
	res := execute(t, reg, "todo-create", `{"title": "x", "priority": "urgent"}`)
	require.False(t, res.Success)
	require.Equal(t, command.CodeValidationError, res.Error.Code)
}

func TestGetCommand_RoundTrip(t *testing.T) {
	reg := todoRegistry(t)
	created := createTodo(t, reg, `{"title": "Buy milk"}`)

	res := execute(t, reg, "todo-get", fmt.Sprintf(`{"id": %q}`, created.ID))
	require.True(t, res.Success)
	require.Equal(t, "Buy milk", res.Data.(Todo).Title)
}

func TestGetCommand_NotFound(t *testing.T) {
	reg := todoRegistry(t)
	res := execute(t, reg, "todo-get", `{"id": "missing"}`)
	require.False(t, res.Success)
	require.Equal(t, command.CodeNotFound, res.Error.Code)
	require.Equal(t, "Todo with ID 'missing' not found", res.Error.Message)
	require.NotEmpty(t, res.Error.Suggestion)
}

func TestListCommand(t *testing.T) {
	reg := todoRegistry(t)
	createTodo(t, reg, `{"title": "Buy milk"}`)
	done := createTodo(t, reg, `{"title": "Walk dog"}`)
	execute(t, reg, "todo-toggle", fmt.Sprintf(`{"id": %q}`, done.ID))

	res := execute(t, reg, "todo-list", `{"completed": true}`)
	require.True(t, res.Success)
	output := res.Data.(ListOutput)
	require.Equal(t, 1, output.Total)
	require.Equal(t, "Walk dog", output.Todos[0].Title)
	require.Equal(t, "Found 1 todo(s)", res.Reasoning)
}

func TestListCommand_Pagination(t *testing.T) {
	reg := todoRegistry(t)
	for i := 0; i < 5; i++ {
		createTodo(t, reg, fmt.Sprintf(`{"title": "task %d"}`, i))
	}

	res := execute(t, reg, "todo-list", `{"limit": 2, "offset": 0}`)
	require.True(t, res.Success)
	output := res.Data.(ListOutput)
	require.Len(t, output.Todos, 2)
	require.Equal(t, 5, output.Total)
	require.True(t, output.HasMore)

	res = execute(t, reg, "todo-list", `{"limit": 2, "offset": 4}`)
	output = res.Data.(ListOutput)
	require.Len(t, output.Todos, 1)
	require.False(t, output.HasMore)
}

func TestUpdateCommand(t *testing.T) {
	reg := todoRegistry(t)
	created := createTodo(t, reg, `{"title": "old"}`)

	res := execute(t, reg, "todo-update",
		fmt.Sprintf(`{"id": %q, "title": "new", "completed": true}`, created.ID))
	require.True(t, res.Success)

	updated := res.Data.(Todo)
	require.Equal(t, "new", updated.Title)
	require.True(t, updated.Completed)
	require.NotNil(t, updated.CompletedAt)
}

func TestUpdateCommand_NoChanges(t *testing.T) {
	reg := todoRegistry(t)
	created := createTodo(t, reg, `{"title": "same", "priority": "high"}`)

	// Same values as current, and no fields at all, both report NO_CHANGES.
	for _, input := range []string{
		fmt.Sprintf(`{"id": %q, "title": "same", "priority": "high"}`, created.ID),
		fmt.Sprintf(`{"id": %q}`, created.ID),
	} {
		res := execute(t, reg, "todo-update", input)
		require.False(t, res.Success)
		require.Equal(t, command.CodeNoChanges, res.Error.Code)
		require.NotEmpty(t, res.Error.Suggestion)
	}
}

func TestUpdateCommand_NotFound(t *testing.T) {
	reg := todoRegistry(t)
	res := execute(t, reg, "todo-update", `{"id": "missing", "title": "x"}`)
	require.False(t, res.Success)
	require.Equal(t, command.CodeNotFound, res.Error.Code)
}

func TestDeleteCommand(t *testing.T) {
	reg := todoRegistry(t)
	created := createTodo(t, reg, `{"title": "doomed"}`)

	res := execute(t, reg, "todo-delete", fmt.Sprintf(`{"id": %q}`, created.ID))
	require.True(t, res.Success)
	require.Equal(t, DeleteOutput{ID: created.ID, Deleted: true}, res.Data)
	require.Equal(t, "Deleted todo 'doomed'", res.Reasoning)

	res = execute(t, reg, "todo-get", fmt.Sprintf(`{"id": %q}`, created.ID))
	require.False(t, res.Success)
}

func TestDeleteCommand_IsDestructive(t *testing.T) {
	reg := todoRegistry(t)
	def, ok := reg.Get("todo-delete")
	require.True(t, ok)
	require.True(t, def.Destructive())
	require.NotEmpty(t, def.ConfirmPrompt())
}

func TestToggleCommand(t *testing.T) {
	reg := todoRegistry(t)
	created := createTodo(t, reg, `{"title": "task"}`)

	res := execute(t, reg, "todo-toggle", fmt.Sprintf(`{"id": %q}`, created.ID))
	require.True(t, res.Success)
	require.True(t, res.Data.(Todo).Completed)
	require.Contains(t, res.Reasoning, "to true")
}

func TestClearCompletedCommand(t *testing.T) {
	reg := todoRegistry(t)
	done := createTodo(t, reg, `{"title": "done"}`)
	execute(t, reg, "todo-toggle", fmt.Sprintf(`{"id": %q}`, done.ID))
	createTodo(t, reg, `{"title": "pending"}`)

	res := execute(t, reg, "todo-clear-completed", `{}`)
	require.True(t, res.Success)
	require.Equal(t, ClearOutput{Cleared: 1}, res.Data)
	require.Equal(t, "Cleared 1 completed todos", res.Reasoning)
}

func TestClearCompletedCommand_All(t *testing.T) {
	reg := todoRegistry(t)
	createTodo(t, reg, `{"title": "a"}`)
	createTodo(t, reg, `{"title": "b"}`)

	res := execute(t, reg, "todo-clear-completed", `{"all": true}`)
	require.True(t, res.Success)
	require.Equal(t, ClearOutput{Cleared: 2}, res.Data)
	require.Equal(t, "Cleared all 2 todos", res.Reasoning)
}

func TestStatsCommand(t *testing.T) {
	reg := todoRegistry(t)
	createTodo(t, reg, `{"title": "a", "priority": "low"}`)
	done := createTodo(t, reg, `{"title": "b", "priority": "high"}`)
	execute(t, reg, "todo-toggle", fmt.Sprintf(`{"id": %q}`, done.ID))

	res := execute(t, reg, "todo-stats", `{}`)
	require.True(t, res.Success)
	stats := res.Data.(Stats)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Completed)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, 0.5, stats.CompletionRate)
}

// Creating a todo and fetching it back always returns the same title.
func TestCreateThenGet_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg := registry.New()
		reg.MustRegister(Commands(NewMemoryStore())...)

		title := rapid.StringMatching(`[^\s]+[^\x00]*`).Draw(t, "title")
		raw, err := json.Marshal(map[string]any{"title": title})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		created := reg.Execute(context.Background(), "todo-create", raw, command.SurfaceCLI)
		if !created.Success {
			t.Fatalf("create failed: %+v", created.Error)
		}
		id := created.Data.(Todo).ID

		idRaw, _ := json.Marshal(map[string]any{"id": id})
		got := reg.Execute(context.Background(), "todo-get", idRaw, command.SurfaceCLI)
		if !got.Success {
			t.Fatalf("get failed: %+v", got.Error)
		}
		if got.Data.(Todo).Title != title {
			t.Fatalf("title mismatch: %q != %q", got.Data.(Todo).Title, title)
		}
	})
}
