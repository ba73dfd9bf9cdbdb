package marketplace

import (
	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles the buyer-facing catalog reads.
type Handlers struct{}

// Listings GET /api/v1/marketplace/listings?projectType=&q=
func (h *Handlers) Listings(c *fiber.Ctx) error {
	pt := domain.ProjectType(c.Query("projectType"))
	if pt != "" && !pt.Valid() {
		return response.Error(c, "Unknown project type", fiber.StatusBadRequest, nil)
	}
	data := middleware.GetCoordinator(c).AvailableListings(coordinator.MarketFilter{ProjectType: pt, Query: c.Query("q")})
	return response.Success(c, "Listings retrieved", data, fiber.Map{"count": len(data)})
}

// Listing GET /api/v1/marketplace/listings/:id
func (h *Handlers) Listing(c *fiber.Ctx) error {
	l, ok := middleware.GetCoordinator(c).Listing(c.Params("id"))
	if !ok {
		return response.ListingNotFound(c)
	}
	return response.Success(c, "Listing retrieved", l, nil)
}

// ProjectTypes GET /api/v1/marketplace/project-types
func (h *Handlers) ProjectTypes(c *fiber.Ctx) error {
	return response.Success(c, "Project types", domain.ProjectTypes, nil)
}

// Stats GET /api/v1/dashboard/stats returns the role's dashboard figures.
func (h *Handlers) Stats(c *fiber.Ctx) error {
	co := middleware.GetCoordinator(c)
	u := middleware.GetUser(c)
	if u.Role == domain.RoleSeller {
		return response.Success(c, "Seller stats", co.SellerStats(), fiber.Map{"role": u.Role})
	}
	return response.Success(c, "Buyer stats", co.BuyerStats(), fiber.Map{"role": u.Role})
}
