package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/identity"
	"github.com/taskify/taskify-api/internal/middleware"
	"github.com/taskify/taskify-api/internal/respond"
)

// RegisterUserRoutes wires the admin user management endpoints.
func RegisterUserRoutes(r fiber.Router, h *identity.Handler, out respond.Writer) {
	group := r.Group("/users", middleware.RequireRole(out, identity.RoleAdmin))
	group.Get("/", h.List)
	group.Patch("/:id/role", h.ChangeRole)
	group.Delete("/:id", h.Delete)
}
