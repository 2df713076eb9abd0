// Package todo is the example domain shipped with the platform. It
// exists to exercise the full command surface: CRUD mutations, list
// filtering, a destructive command and a stats read, backed by either
// an in-memory or a SQLite store.
package todo

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Priority orders todos by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// rank gives priorities a sortable order.
func (p Priority) rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	default:
		return 1
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Todo is a single todo item.
type Todo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Stats summarizes a todo collection.
type Stats struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	Pending        int            `json:"pending"`
	ByPriority     PriorityStats  `json:"byPriority"`
	CompletionRate float64        `json:"completionRate"`
}

// PriorityStats counts todos per priority.
type PriorityStats struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Filter narrows and orders List results. Nil pointers mean no
// constraint; zero Limit means no page cap.
type Filter struct {
	Completed *bool
	Priority  Priority
	Search    string
	SortBy    string // title, priority, updatedAt; anything else sorts by createdAt
	SortOrder string // asc or desc; default desc
	Limit     int
	Offset    int
}

// Changes carries the fields a todo update may touch. Nil means leave
// the field alone.
type Changes struct {
	Title       *string
	Description *string
	Priority    *Priority
	Completed   *bool
}

// Empty reports whether no field is set.
func (c Changes) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Priority == nil && c.Completed == nil
}

// ErrNotFound is returned by stores when an ID does not exist.
var ErrNotFound = errors.New("todo not found")

// Store is the persistence boundary for todos. Both implementations
// must behave identically so commands do not care which one is wired.
type Store interface {
	// Create inserts a todo with a fresh ID and timestamps.
	Create(ctx context.Context, title, description string, priority Priority) (Todo, error)

	// Get returns the todo with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (Todo, error)

	// List returns the filtered page and the total match count before
	// pagination.
	List(ctx context.Context, filter Filter) ([]Todo, int, error)

	// Update applies changes and bumps UpdatedAt. Completing a todo sets
	// CompletedAt; un-completing clears it.
	Update(ctx context.Context, id string, changes Changes) (Todo, error)

	// Delete removes the todo, returning it for reporting.
	Delete(ctx context.Context, id string) (Todo, error)

	// Toggle flips completion.
	Toggle(ctx context.Context, id string) (Todo, error)

	// Clear deletes completed todos, or every todo when all is true.
	// Returns the number removed.
	Clear(ctx context.Context, all bool) (int, error)

	// Stats summarizes the collection.
	Stats(ctx context.Context) (Stats, error)

	// Close releases store resources.
	Close() error
}

// matchesFilter applies the non-pagination filter constraints.
func matchesFilter(t Todo, f Filter) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// less orders todos for the given sort key, ascending.
func less(a, b Todo, sortBy string) bool {
	switch sortBy {
	case "title":
		return a.Title < b.Title
	case "priority":
		return a.Priority.rank() < b.Priority.rank()
	case "updatedAt":
		return a.UpdatedAt.Before(b.UpdatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

// page slices todos by offset and limit.
func page(todos []Todo, offset, limit int) []Todo {
	if offset >= len(todos) {
		return []Todo{}
	}
	todos = todos[offset:]
	if limit > 0 && limit < len(todos) {
		todos = todos[:limit]
	}
	return todos
}
