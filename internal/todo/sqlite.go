package todo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/dispatch/internal/log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// timeFormat is how timestamps are stored in SQLite TEXT columns.
const timeFormat = time.RFC3339Nano

// todoColumns is the column list every SELECT uses.
const todoColumns = `id, title, description, priority, completed, created_at, updated_at, completed_at`

// SQLiteStore persists todos in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at path and
// brings the schema up to date. The parent directory is created with
// 0700 permissions. An existing database is backed up to path.bak
// before migrations run.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+".bak"); err != nil {
			return nil, fmt.Errorf("failed to back up database: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info(log.CatDB, "sqlite store opened", "path", path)
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// todoRow is the scan target mirroring the todos table.
type todoRow struct {
	ID          string
	Title       string
	Description string
	Priority    string
	Completed   bool
	CreatedAt   string
	UpdatedAt   string
	CompletedAt sql.NullString
}

func scanTodo(scanner interface{ Scan(...any) error }) (Todo, error) {
	var row todoRow
	err := scanner.Scan(
		&row.ID, &row.Title, &row.Description, &row.Priority,
		&row.Completed, &row.CreatedAt, &row.UpdatedAt, &row.CompletedAt,
	)
	if err != nil {
		return Todo{}, err
	}
	return row.toTodo()
}

func (r todoRow) toTodo() (Todo, error) {
	createdAt, err := time.Parse(timeFormat, r.CreatedAt)
	if err != nil {
		return Todo{}, fmt.Errorf("invalid created_at: %w", err)
	}
	updatedAt, err := time.Parse(timeFormat, r.UpdatedAt)
	if err != nil {
		return Todo{}, fmt.Errorf("invalid updated_at: %w", err)
	}
	t := Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    Priority(r.Priority),
		Completed:   r.Completed,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	if r.CompletedAt.Valid {
		completedAt, err := time.Parse(timeFormat, r.CompletedAt.String)
		if err != nil {
			return Todo{}, fmt.Errorf("invalid completed_at: %w", err)
		}
		t.CompletedAt = &completedAt
	}
	return t, nil
}

func (s *SQLiteStore) Create(ctx context.Context, title, description string, priority Priority) (Todo, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	now := s.now().UTC()
	t := Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (id, title, description, priority, completed, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?, NULL)`,
		t.ID, t.Title, t.Description, string(t.Priority),
		t.CreatedAt.Format(timeFormat), t.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return Todo{}, fmt.Errorf("failed to insert todo: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Todo, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("failed to get todo: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Todo, int, error) {
	where, args := filterClauses(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM todos` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count todos: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + todoColumns + ` FROM todos` + where +
		` ORDER BY ` + sortExpr(filter.SortBy) + ` ` + sortDir(filter.SortOrder) +
		` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	todos := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate todos: %w", err)
	}
	return todos, total, nil
}

func filterClauses(filter Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, *filter.Completed)
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Search != "" {
		clauses = append(clauses, "(lower(title) LIKE ? OR lower(description) LIKE ?)")
		needle := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, needle, needle)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// sortExpr maps a sort key to a column expression. Unknown keys fall
// back to created_at, matching the in-memory store.
func sortExpr(sortBy string) string {
	switch sortBy {
	case "title":
		return "title"
	case "priority":
		return "CASE priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END"
	case "updatedAt":
		return "updated_at"
	default:
		return "created_at"
	}
}

func sortDir(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}

func (s *SQLiteStore) Update(ctx context.Context, id string, changes Changes) (Todo, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Todo{}, err
	}

	if changes.Title != nil {
		t.Title = *changes.Title
	}
	if changes.Description != nil {
		t.Description = *changes.Description
	}
	if changes.Priority != nil {
		t.Priority = *changes.Priority
	}
	if changes.Completed != nil {
		setCompleted(&t, *changes.Completed, s.now)
	}
	t.UpdatedAt = s.now().UTC()

	var completedAt any
	if t.CompletedAt != nil {
		completedAt = t.CompletedAt.Format(timeFormat)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE todos SET title = ?, description = ?, priority = ?, completed = ?, updated_at = ?, completed_at = ?
		 WHERE id = ?`,
		t.Title, t.Description, string(t.Priority), t.Completed,
		t.UpdatedAt.Format(timeFormat), completedAt, id,
	)
	if err != nil {
		return Todo{}, fmt.Errorf("failed to update todo: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) (Todo, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id); err != nil {
		return Todo{}, fmt.Errorf("failed to delete todo: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Toggle(ctx context.Context, id string) (Todo, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	completed := !t.Completed
	return s.Update(ctx, id, Changes{Completed: &completed})
}

func (s *SQLiteStore) Clear(ctx context.Context, all bool) (int, error) {
	query := `DELETE FROM todos WHERE completed = 1`
	if all {
		query = `DELETE FROM todos`
	}
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear todos: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared todos: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(completed), 0),
			COALESCE(SUM(priority = 'low'), 0),
			COALESCE(SUM(priority = 'medium'), 0),
			COALESCE(SUM(priority = 'high'), 0)
		FROM todos`,
	).Scan(&stats.Total, &stats.Completed, &stats.ByPriority.Low, &stats.ByPriority.Medium, &stats.ByPriority.High)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats, nil
}
