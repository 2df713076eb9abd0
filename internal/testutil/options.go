package testutil

import "time"

// todoData holds all data for a todo row to be inserted.
type todoData struct {
	id          string
	title       string
	description string
	priority    string
	completed   bool
	createdAt   time.Time
	updatedAt   time.Time
	completedAt *time.Time
}

// defaultTodo returns a todoData with sensible defaults.
func defaultTodo(id string) todoData {
	now := time.Now().UTC()
	return todoData{
		id:        id,
		title:     id, // Default title is the ID
		priority:  "medium",
		createdAt: now,
		updatedAt: now,
	}
}

// TodoOption configures a todo during builder setup.
type TodoOption func(*todoData)

// Title sets the todo title.
func Title(title string) TodoOption {
	return func(td *todoData) { td.title = title }
}

// Description sets the todo description.
func Description(desc string) TodoOption {
	return func(td *todoData) { td.description = desc }
}

// Priority sets the todo priority (low, medium, high).
func Priority(p string) TodoOption {
	return func(td *todoData) { td.priority = p }
}

// Completed marks the todo as done. completedAt defaults to now when
// not set separately.
func Completed() TodoOption {
	return func(td *todoData) {
		td.completed = true
		if td.completedAt == nil {
			now := time.Now().UTC()
			td.completedAt = &now
		}
	}
}

// CreatedAt sets the created_at timestamp.
func CreatedAt(t time.Time) TodoOption {
	return func(td *todoData) { td.createdAt = t }
}

// UpdatedAt sets the updated_at timestamp.
func UpdatedAt(t time.Time) TodoOption {
	return func(td *todoData) { td.updatedAt = t }
}

// CompletedAt sets the completed_at timestamp explicitly and marks the
// todo completed.
func CompletedAt(t time.Time) TodoOption {
	return func(td *todoData) {
		td.completed = true
		td.completedAt = &t
	}
}
