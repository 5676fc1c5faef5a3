package identity

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/respond"
	"github.com/taskify/taskify-api/internal/validate"
)

type userPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Verified  bool   `json:"verified"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// Handler exposes the admin-facing user management endpoints.
type Handler struct {
	svc   *Service
	users Repository
	out   respond.Writer
}

// NewHandler builds the user management handler.
func NewHandler(svc *Service, users Repository, out respond.Writer) *Handler {
	return &Handler{svc: svc, users: users, out: out}
}

// List returns a page of registered users.
func (h *Handler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	users, total, err := h.users.List(c.UserContext(), page, limit)
	if err != nil {
		return h.out.Error(c, err)
	}

	payload := make([]userPayload, 0, len(users))
	for _, u := range users {
		payload = append(payload, userPayload{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			Verified:  u.Verified,
			Role:      u.Role,
			CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return h.out.Success(c, fiber.StatusOK, "users retrieved successfully", fiber.Map{
		"users": payload,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// ChangeRole updates the role of the user named in the path.
func (h *Handler) ChangeRole(c *fiber.Ctx) error {
	var req changeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return h.out.Error(c, fmt.Errorf("malformed request body: %w", domain.ErrBadRequest))
	}
	if err := validate.Struct(req); err != nil {
		return h.out.Error(c, fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest))
	}

	if err := h.svc.ChangeRole(c.UserContext(), c.Params("id"), req.Role); err != nil {
		return h.out.Error(c, err)
	}
	return h.out.Success(c, fiber.StatusOK, "user role updated successfully", nil)
}

// Delete removes the user named in the path along with their live session.
func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.svc.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return h.out.Error(c, err)
	}
	return h.out.NoContent(c)
}
