package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/auth"
)

// RegisterAuthRoutes wires the registration, verification and session
// endpoints. Credential and code endpoints sit behind their own limiters.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, guard, loginLimit, otpLimit fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/register", otpLimit, h.Register)
	group.Post("/verify-email", otpLimit, h.VerifyEmail)
	group.Post("/login", loginLimit, h.Login)
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", h.Logout)
	group.Post("/forgot-password", otpLimit, h.ForgotPassword)
	group.Post("/reset-password", otpLimit, h.ResetPassword)
	group.Get("/me", guard, h.Me)
}
