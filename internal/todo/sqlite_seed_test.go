package todo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/dispatch/internal/testutil"
)

// seededStore wraps a pre-populated in-memory database so read paths
// can be checked against rows the store did not write itself.
func seededStore(t *testing.T, seed func(*testutil.Builder) *testutil.Builder) *SQLiteStore {
	t.Helper()
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { _ = db.Close() })
	seed(testutil.NewBuilder(t, db)).Build()
	return &SQLiteStore{db: db, now: time.Now}
}

func TestSQLiteStore_ReadsSeededRows(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, func(b *testutil.Builder) *testutil.Builder {
		return b.WithStandardTodos()
	})

	todos, total, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, todos, 5)

	got, err := store.Get(ctx, "todo-1")
	require.NoError(t, err)
	require.Equal(t, "Buy groceries", got.Title)
	require.Equal(t, PriorityHigh, got.Priority)
	require.False(t, got.Completed)
	require.Nil(t, got.CompletedAt)

	done, err := store.Get(ctx, "todo-4")
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, stats.Total)
	require.Equal(t, 2, stats.Completed)
	require.Equal(t, 3, stats.Pending)
	require.Equal(t, 2, stats.ByPriority.High)
}

func TestSQLiteStore_FiltersSeededRows(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t, func(b *testutil.Builder) *testutil.Builder {
		return b.
			WithTodo("open-low", testutil.Title("Sweep porch"), testutil.Priority("low")).
			WithTodo("open-high", testutil.Title("Pay rent"), testutil.Priority("high")).
			WithTodo("done-high", testutil.Title("Book flight"), testutil.Priority("high"), testutil.Completed())
	})

	completed := false
	todos, total, err := store.List(ctx, Filter{Completed: &completed, Priority: PriorityHigh})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, todos, 1)
	require.Equal(t, "open-high", todos[0].ID)

	todos, total, err = store.List(ctx, Filter{Search: "flight"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "done-high", todos[0].ID)
}
