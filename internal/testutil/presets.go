package testutil

import "time"

// WithStandardTodos adds a small mixed dataset: three open todos across
// all priorities and two completed ones.
func (b *Builder) WithStandardTodos() *Builder {
	now := time.Now().UTC()
	yesterday := now.Add(-24 * time.Hour)
	lastWeek := now.Add(-7 * 24 * time.Hour)

	return b.
		WithTodo("todo-1",
			Title("Buy groceries"), Description("Milk, eggs, bread"),
			Priority("high"), CreatedAt(lastWeek), UpdatedAt(now)).
		WithTodo("todo-2",
			Title("Write report"), Priority("medium"),
			CreatedAt(yesterday), UpdatedAt(yesterday)).
		WithTodo("todo-3",
			Title("Water plants"), Priority("low"),
			CreatedAt(lastWeek), UpdatedAt(lastWeek)).
		WithTodo("todo-4",
			Title("File taxes"), Priority("high"),
			CreatedAt(lastWeek), CompletedAt(yesterday)).
		WithTodo("todo-5",
			Title("Call dentist"), Completed(),
			CreatedAt(yesterday), UpdatedAt(now))
}
