package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/identity"
	"github.com/taskify/taskify-api/internal/respond"
	"github.com/taskify/taskify-api/internal/token"
)

const userLocalsKey = "auth_user"

// BearerAuth is the session guard: it validates the access token's signature
// and expiry, then re-checks the bound identity against the durable store so
// a token dies the moment its identity is deleted or un-verified. The extra
// lookup per request is the price of that guarantee.
func BearerAuth(tokens *token.Manager, users identity.Repository, out respond.Writer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return out.Error(c, fmt.Errorf("bearer token missing: %w", domain.ErrUnauthenticated))
		}

		claims, err := tokens.ParseAccess(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return out.Error(c, err)
		}

		user, err := users.FindByID(c.UserContext(), claims.Subject)
		if errors.Is(err, domain.ErrNotFound) {
			return out.Error(c, fmt.Errorf("identity gone: %w", domain.ErrUnauthenticated))
		}
		if err != nil {
			// A store fault is not a credential failure; let it surface as
			// retryable so clients do not drop their session.
			return out.Error(c, err)
		}
		if !user.Verified {
			return out.Error(c, fmt.Errorf("identity unverified: %w", domain.ErrUnauthenticated))
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// RequireRole restricts a route to identities holding one of the given
// roles. Must run after BearerAuth.
func RequireRole(out respond.Writer, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromCtx(c)
		if !ok {
			return out.Error(c, domain.ErrUnauthenticated)
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		return out.Error(c, domain.ErrForbidden)
	}
}

// UserFromCtx returns the identity attached by BearerAuth.
func UserFromCtx(c *fiber.Ctx) (identity.User, bool) {
	user, ok := c.Locals(userLocalsKey).(identity.User)
	return user, ok
}
