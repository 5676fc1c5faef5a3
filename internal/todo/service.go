package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskify/taskify-api/internal/cache"
	"github.com/taskify/taskify-api/internal/domain"
)

const resource = "todos"

// maxBulkDelete caps a single bulk delete request.
const maxBulkDelete = 50

// Service wraps the repository with the cache-aside layer: list reads go
// through the cache under canonical keys, and every mutation invalidates the
// affected key families.
type Service struct {
	repo   Repository
	cache  *cache.Cache
	logger *slog.Logger
}

// NewService wires the todo service.
func NewService(repo Repository, c *cache.Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, logger: logger}
}

// Input carries the validated fields of a create or update request.
type Input struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     time.Time
	Tags        []string
}

// Create stores a new todo for the owner and sweeps every listing that
// could include it.
func (s *Service) Create(ctx context.Context, ownerID string, in Input) (Todo, error) {
	t := Todo{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		CreatedAt:   time.Now().UTC(),
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return Todo{}, err
	}
	s.invalidateListings(ownerID)
	return t, nil
}

// Get returns one todo, owner-checked, read through the item cache.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Todo, error) {
	key := cache.ItemKey(resource, id)
	if payload, ok := s.cache.Read(ctx, key); ok {
		var t Todo
		if err := json.Unmarshal(payload, &t); err == nil {
			return t, s.checkOwner(t, ownerID)
		}
		s.cache.Invalidate(ctx, key)
	}

	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	if err := s.checkOwner(t, ownerID); err != nil {
		return Todo{}, err
	}

	if payload, err := json.Marshal(t); err == nil {
		s.cache.Write(ctx, key, payload)
	}
	return t, nil
}

// List resolves a list query through the cache. The canonical key makes two
// requests with the same effective query share one entry regardless of how
// their parameters were spelled.
func (s *Service) List(ctx context.Context, q Query) (ListResult, error) {
	key := cache.ListKey(resource, cacheQuery(q))
	if payload, ok := s.cache.Read(ctx, key); ok {
		var result ListResult
		if err := json.Unmarshal(payload, &result); err == nil {
			return result, nil
		}
		s.cache.Invalidate(ctx, key)
	}

	todos, total, err := s.repo.List(ctx, q)
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{
		Todos: todos,
		Pagination: Page{
			Total: total,
			Page:  q.Page,
			Limit: q.Limit,
			Pages: (total + q.Limit - 1) / q.Limit,
		},
	}
	if payload, err := json.Marshal(result); err == nil {
		s.cache.Write(ctx, key, payload)
	}
	return result, nil
}

// Update replaces the mutable fields of an owner's todo and invalidates the
// item entry synchronously plus the affected listings asynchronously.
func (s *Service) Update(ctx context.Context, ownerID, id string, in Input) (Todo, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Todo{}, err
	}
	if err := s.checkOwner(existing, ownerID); err != nil {
		return Todo{}, err
	}

	existing.Title = in.Title
	existing.Description = in.Description
	existing.Status = in.Status
	existing.Priority = in.Priority
	existing.DueDate = in.DueDate
	existing.Tags = in.Tags
	if err := s.repo.Update(ctx, existing); err != nil {
		return Todo{}, err
	}

	s.cache.Invalidate(ctx, cache.ItemKey(resource, id))
	s.invalidateListings(ownerID)
	return existing, nil
}

// Delete removes an owner's todo.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkOwner(existing, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, cache.ItemKey(resource, id))
	s.invalidateListings(ownerID)
	return nil
}

// BulkDelete removes up to maxBulkDelete todos owned by ownerID. Ids that do
// not exist or belong to someone else fail the whole batch, mirroring the
// all-or-nothing contract of the original endpoint.
func (s *Service) BulkDelete(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("ids must be a non-empty array: %w", domain.ErrBadRequest)
	}
	if len(ids) > maxBulkDelete {
		return fmt.Errorf("cannot delete more than %d todos at once: %w", maxBulkDelete, domain.ErrBadRequest)
	}

	for _, id := range ids {
		t, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("some todos not found or unauthorized: %w", domain.ErrForbidden)
		}
		if t.OwnerID != ownerID {
			return fmt.Errorf("some todos not found or unauthorized: %w", domain.ErrForbidden)
		}
	}

	if _, err := s.repo.DeleteMany(ctx, ownerID, ids); err != nil {
		return err
	}

	ctxKeys := context.WithoutCancel(ctx)
	for _, id := range ids {
		s.cache.Invalidate(ctxKeys, cache.ItemKey(resource, id))
	}
	s.invalidateListings(ownerID)
	return nil
}

// invalidateListings queues the asynchronous sweeps of the owner's listings
// and the cross-owner listings. Readers may see a stale page until the
// sweep lands; the cache TTL bounds that window.
func (s *Service) invalidateListings(ownerID string) {
	s.cache.InvalidateByPattern(cache.OwnerPattern(resource, ownerID))
	s.cache.InvalidateByPattern(cache.AllPattern(resource))
}

func (s *Service) checkOwner(t Todo, ownerID string) error {
	if t.OwnerID != ownerID {
		return fmt.Errorf("todo belongs to another user: %w", domain.ErrForbidden)
	}
	return nil
}

func cacheQuery(q Query) cache.ListQuery {
	filters := make(map[string]string)
	if q.Status != "" {
		filters["status"] = q.Status
	}
	if q.Priority != "" {
		filters["priority"] = q.Priority
	}
	if q.Tag != "" {
		filters["tag"] = q.Tag
	}
	if q.Search != "" {
		filters["search"] = q.Search
	}
	return cache.ListQuery{
		OwnerID: q.OwnerID,
		Page:    q.Page,
		Limit:   q.Limit,
		Sort:    q.Sort,
		Order:   q.Order,
		Filters: filters,
	}
}
