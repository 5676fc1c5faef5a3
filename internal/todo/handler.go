package todo

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/middleware"
	"github.com/taskify/taskify-api/internal/respond"
	"github.com/taskify/taskify-api/internal/validate"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Handler exposes the todo CRUD endpoints.
type Handler struct {
	svc *Service
	out respond.Writer
}

// NewHandler builds the todo handler.
func NewHandler(svc *Service, out respond.Writer) *Handler {
	return &Handler{svc: svc, out: out}
}

type todoRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Status      string   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     string   `json:"due_date" validate:"required"`
	Tags        []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=30"`
}

func (r todoRequest) input() (Input, error) {
	due, err := time.Parse(time.RFC3339, r.DueDate)
	if err != nil {
		return Input{}, fmt.Errorf("due_date must be RFC 3339: %w", domain.ErrBadRequest)
	}
	return Input{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     due.UTC(),
		Tags:        r.Tags,
	}, nil
}

// Create adds a todo for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return h.out.Error(c, domain.ErrUnauthenticated)
	}

	in, err := h.parseBody(c)
	if err != nil {
		return h.out.Error(c, err)
	}

	created, err := h.svc.Create(c.UserContext(), user.ID, in)
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Created(c, "todo created successfully", created)
}

// List returns the authenticated user's todos, cached.
func (h *Handler) List(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return h.out.Error(c, domain.ErrUnauthenticated)
	}

	q := parseQuery(c)
	q.OwnerID = user.ID
	result, err := h.svc.List(c.UserContext(), q)
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "todos retrieved successfully", result)
}

// ListAll returns todos across all owners. Admin only; the route wiring
// enforces the role.
func (h *Handler) ListAll(c *fiber.Ctx) error {
	q := parseQuery(c)
	result, err := h.svc.List(c.UserContext(), q)
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "todos retrieved successfully", result)
}

// Get returns one of the authenticated user's todos.
func (h *Handler) Get(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return h.out.Error(c, domain.ErrUnauthenticated)
	}

	t, err := h.svc.Get(c.UserContext(), user.ID, c.Params("id"))
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "todo retrieved successfully", t)
}

// Update replaces a todo's mutable fields.
func (h *Handler) Update(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return h.out.Error(c, domain.ErrUnauthenticated)
	}

	in, err := h.parseBody(c)
	if err != nil {
		return h.out.Error(c, err)
	}

	updated, err := h.svc.Update(c.UserContext(), user.ID, c.Params("id"), in)
	if err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "todo updated successfully", updated)
}

// Delete removes one todo.
func (h *Handler) Delete(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return h.out.Error(c, domain.ErrUnauthenticated)
	}

	if err := h.svc.Delete(c.UserContext(), user.ID, c.Params("id")); err != nil {
		return h.out.Error(c, err)
	}
	return h.out.NoContent(c)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=50,dive,uuid4"`
}

// BulkDelete removes a batch of the user's todos.
func (h *Handler) BulkDelete(c *fiber.Ctx) error {
	user, ok := middleware.UserFromCtx(c)
	if !ok {
		return h.out.Error(c, domain.ErrUnauthenticated)
	}

	var req bulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return h.out.Error(c, fmt.Errorf("malformed request body: %w", domain.ErrBadRequest))
	}
	if err := validate.Struct(req); err != nil {
		return h.out.Error(c, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest))
	}

	if err := h.svc.BulkDelete(c.UserContext(), user.ID, req.IDs); err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, fmt.Sprintf("%d todos deleted successfully", len(req.IDs)), nil)
}

func (h *Handler) parseBody(c *fiber.Ctx) (Input, error) {
	var req todoRequest
	if err := c.BodyParser(&req); err != nil {
		return Input{}, fmt.Errorf("malformed request body: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(req); err != nil {
		return Input{}, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return req.input()
}

// parseQuery resolves and clamps the raw list parameters. The resolved
// Query, not the raw request, is what feeds the cache key.
func parseQuery(c *fiber.Ctx) Query {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	order := "desc"
	if c.Query("order") == "asc" {
		order = "asc"
	}

	sortField := c.Query("sort", "created_at")
	if _, ok := sortColumns[sortField]; !ok {
		sortField = "created_at"
	}

	return Query{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Tag:      c.Query("tag"),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
		Sort:     sortField,
		Order:    order,
	}
}
