package user

import (
	"carbonmarket/internal/domain"
	"carbonmarket/internal/interfaces/handlers"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct{}

// UpdateProfile PATCH /api/v1/profile. Only companyName, ownerName and address
// are accepted; absent fields keep their value.
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	var patch domain.ProfilePatch
	if err := c.BodyParser(&patch); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	u, err := middleware.GetCoordinator(c).UpdateProfile(c.UserContext(), patch)
	if err != nil {
		return handlers.Fail(c, err)
	}
	return response.Success(c, "Profile updated", u, nil)
}
