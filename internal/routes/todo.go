package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/identity"
	"github.com/taskify/taskify-api/internal/middleware"
	"github.com/taskify/taskify-api/internal/respond"
	"github.com/taskify/taskify-api/internal/todo"
)

// RegisterTodoRoutes wires the owner-scoped todo endpoints. The router is
// expected to already carry the session guard.
func RegisterTodoRoutes(r fiber.Router, h *todo.Handler, out respond.Writer) {
	group := r.Group("/todos")
	group.Post("/", h.Create)
	group.Get("/", h.List)
	group.Get("/all", middleware.RequireRole(out, identity.RoleAdmin), h.ListAll)
	group.Delete("/bulk", h.BulkDelete)
	group.Get("/:id", h.Get)
	group.Put("/:id", h.Update)
	group.Delete("/:id", h.Delete)
}
