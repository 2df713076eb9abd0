package todo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps todos in a map. It is the default store and the
// reference implementation the SQLite store is tested against.
type MemoryStore struct {
	mu    sync.RWMutex
	todos map[string]Todo
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos: make(map[string]Todo),
		now:   time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, title, description string, priority Priority) (Todo, error) {
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

	s.mu.Lock()
	s.todos[t.ID] = t
	s.mu.Unlock()
	return t, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Todo, int, error) {
	s.mu.RLock()
	matched := make([]Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if matchesFilter(t, filter) {
			matched = append(matched, t)
		}
	}
	s.mu.RUnlock()

	desc := filter.SortOrder != "asc"
	sort.Slice(matched, func(i, j int) bool {
		if desc {
			return less(matched[j], matched[i], filter.SortBy)
		}
		return less(matched[i], matched[j], filter.SortBy)
	})

	total := len(matched)
	return page(matched, filter.Offset, filter.Limit), total, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, changes Changes) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return Todo{}, ErrNotFound
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

	s.todos[id] = t
	return t, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	delete(s.todos, id)
	return t, nil
}

func (s *MemoryStore) Toggle(_ context.Context, id string) (Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	setCompleted(&t, !t.Completed, s.now)
	t.UpdatedAt = s.now().UTC()

	s.todos[id] = t
	return t, nil
}

func (s *MemoryStore) Clear(_ context.Context, all bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if all {
		n := len(s.todos)
		s.todos = make(map[string]Todo)
		return n, nil
	}

	n := 0
	for id, t := range s.todos {
		if t.Completed {
			delete(s.todos, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Total: len(s.todos)}
	for _, t := range s.todos {
		if t.Completed {
			stats.Completed++
		}
		switch t.Priority {
		case PriorityLow:
			stats.ByPriority.Low++
		case PriorityHigh:
			stats.ByPriority.High++
		default:
			stats.ByPriority.Medium++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total)
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }

// setCompleted flips completion and keeps CompletedAt consistent with
// it.
func setCompleted(t *Todo, completed bool, now func() time.Time) {
	if completed && !t.Completed {
		at := now().UTC()
		t.CompletedAt = &at
	} else if !completed {
		t.CompletedAt = nil
	}
	t.Completed = completed
}
