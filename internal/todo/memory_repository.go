package todo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/taskify/taskify-api/internal/domain"
)

type memoryRepository struct {
	mu    sync.RWMutex
	todos map[string]Todo
}

// NewMemoryRepository builds an in-memory todo store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{todos: make(map[string]Todo)}
}

func (r *memoryRepository) Create(_ context.Context, t Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todos[t.ID] = t
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.todos[id]
	if !ok {
		return Todo{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *memoryRepository) List(_ context.Context, q Query) ([]Todo, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Todo
	for _, t := range r.todos {
		if matches(t, q) {
			matched = append(matched, t)
		}
	}

	asc := strings.EqualFold(q.Order, "asc")
	sort.Slice(matched, func(i, j int) bool {
		if asc {
			return lessBy(q.Sort, matched[i], matched[j])
		}
		// Swapped operands keep equal keys from comparing true both ways.
		return lessBy(q.Sort, matched[j], matched[i])
	})

	total := len(matched)
	start := (q.Page - 1) * q.Limit
	if start >= total {
		return nil, total, nil
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *memoryRepository) Update(_ context.Context, t Todo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.todos[t.ID]
	if !ok {
		return domain.ErrNotFound
	}
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	r.todos[t.ID] = t
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.todos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.todos, id)
	return nil
}

func (r *memoryRepository) DeleteMany(_ context.Context, ownerID string, ids []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if t, ok := r.todos[id]; ok && t.OwnerID == ownerID {
			delete(r.todos, id)
			deleted++
		}
	}
	return deleted, nil
}

func matches(t Todo, q Query) bool {
	if q.OwnerID != "" && t.OwnerID != q.OwnerID {
		return false
	}
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}
	if q.Tag != "" {
		found := false
		for _, tag := range t.Tags {
			if tag == q.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

func lessBy(field string, a, b Todo) bool {
	switch field {
	case "due_date":
		return a.DueDate.Before(b.DueDate)
	case "title":
		return a.Title < b.Title
	case "status":
		return a.Status < b.Status
	case "priority":
		return a.Priority < b.Priority
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}
