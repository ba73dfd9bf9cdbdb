package state

import (
	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/interfaces/handlers"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the coordinator snapshot and navigation.
type Handlers struct{}

// Get GET /api/v1/state returns the full rendering snapshot.
func (h *Handlers) Get(c *fiber.Ctx) error {
	return response.Success(c, "State retrieved", middleware.GetCoordinator(c).Snapshot(), nil)
}

// SetView PUT /api/v1/state/view. Returns the view actually applied, which is
// home when a session-only view is requested while logged out.
func (h *Handlers) SetView(c *fiber.Ctx) error {
	var req struct {
		View coordinator.View `json:"view"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	v, err := middleware.GetCoordinator(c).SetView(req.View)
	if err != nil {
		return handlers.Fail(c, err)
	}
	return response.Success(c, "View changed", fiber.Map{"view": v}, nil)
}

// Refresh POST /api/v1/state/refresh re-reads the catalog. On failure the
// previous catalog is kept and 502 is returned.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	co := middleware.GetCoordinator(c)
	if err := co.RefreshCatalog(c.UserContext()); err != nil {
		return handlers.Fail(c, err)
	}
	s := co.Snapshot()
	return response.Success(c, "Catalog refreshed", fiber.Map{"listings": s.Listings, "orders": s.Orders}, nil)
}
