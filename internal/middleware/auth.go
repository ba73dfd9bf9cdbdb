package middleware

import (
	"carbonmarket/internal/domain"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth rejects requests whose session has no signed-in user.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		co := GetCoordinator(c)
		if co == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		u := co.User()
		if u == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(userLocal, u)
		return c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := GetUser(c)
		if u == nil || u.Role != role {
			return response.Error(c, "Forbidden: "+string(role)+" role required", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// GetUser returns the user attached by RequireAuth, or nil.
func GetUser(c *fiber.Ctx) *domain.SessionUser {
	u, _ := c.Locals(userLocal).(*domain.SessionUser)
	return u
}
