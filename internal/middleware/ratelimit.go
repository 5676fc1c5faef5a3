package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/ratelimit"
	"github.com/taskify/taskify-api/internal/respond"
)

// RateLimit gates a route on the fixed-window budget for the given purpose.
// The gate runs before the handler, so a rejected request performs no side
// effect underneath.
//
// Identity-proofing purposes key on the target contact address so a specific
// account is defended even across origins; everything else keys on the
// caller's IP.
func RateLimit(limiter *ratelimit.Limiter, purpose ratelimit.Purpose, out respond.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier := c.IP()
		if purpose == ratelimit.PurposeOTP {
			if email := peekEmail(c); email != "" {
				identifier = email
			}
		}

		if err := limiter.Allow(c.UserContext(), purpose, identifier); err != nil {
			return out.Error(c, err)
		}
		return c.Next()
	}
}

// peekEmail extracts the email field from the JSON body without consuming
// it; parsing failures just fall back to the IP identifier.
func peekEmail(c *fiber.Ctx) string {
	var req struct {
		Email string `json:"email"`
	}
	_ = c.BodyParser(&req)
	return strings.ToLower(strings.TrimSpace(req.Email))
}
