package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// rowTimeFormat matches how the sqlite store serializes timestamps.
const rowTimeFormat = time.RFC3339Nano

// Builder accumulates test rows and inserts them on Build.
type Builder struct {
	t     *testing.T
	db    *sql.DB
	todos []todoData
}

// NewBuilder creates a builder for the given test database.
func NewBuilder(t *testing.T, db *sql.DB) *Builder {
	t.Helper()
	return &Builder{t: t, db: db}
}

// WithTodo adds a todo with optional configuration.
func (b *Builder) WithTodo(id string, opts ...TodoOption) *Builder {
	td := defaultTodo(id)
	for _, opt := range opts {
		opt(&td)
	}
	b.todos = append(b.todos, td)
	return b
}

// Build inserts all accumulated rows into the database.
func (b *Builder) Build() {
	b.t.Helper()
	for _, td := range b.todos {
		b.insertTodo(td)
	}
}

func (b *Builder) insertTodo(td todoData) {
	b.t.Helper()

	var completedAt any
	if td.completedAt != nil {
		completedAt = td.completedAt.Format(rowTimeFormat)
	}

	_, err := b.db.Exec(
		`INSERT INTO todos (id, title, description, priority, completed, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		td.id, td.title, td.description, td.priority, td.completed,
		td.createdAt.Format(rowTimeFormat), td.updatedAt.Format(rowTimeFormat), completedAt,
	)
	require.NoError(b.t, err)
}
