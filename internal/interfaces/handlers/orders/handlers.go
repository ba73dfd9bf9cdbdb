package orders

import (
	"carbonmarket/internal/interfaces/handlers"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct{}

// Purchase POST /api/v1/orders {listingId}. A purchase whose preconditions no
// longer hold (sold, unknown, own listing) succeeds with purchased=false.
func (h *Handlers) Purchase(c *fiber.Ctx) error {
	var req struct {
		ListingID string `json:"listingId"`
	}
	if err := c.BodyParser(&req); err != nil || req.ListingID == "" {
		return response.Error(c, "listingId is required", fiber.StatusBadRequest, nil)
	}
	co := middleware.GetCoordinator(c)
	o, err := co.Purchase(c.UserContext(), req.ListingID)
	if err != nil {
		return handlers.Fail(c, err)
	}
	if o == nil {
		return response.Success(c, "Listing is no longer available", fiber.Map{"purchased": false}, nil)
	}
	msg := "Transaction complete"
	if n := co.Snapshot().Notice; n != nil {
		msg = n.Text
	}
	return response.SuccessCreated(c, msg, fiber.Map{"purchased": true, "order": o}, nil)
}

// Mine GET /api/v1/orders/mine lists the buyer's purchases, newest first.
func (h *Handlers) Mine(c *fiber.Ctx) error {
	data := middleware.GetCoordinator(c).BuyerOrders()
	return response.Success(c, "Orders retrieved", data, fiber.Map{"count": len(data)})
}

// Deals GET /api/v1/orders/deals merges sales and purchases, tagged SALE or PURCHASE.
func (h *Handlers) Deals(c *fiber.Ctx) error {
	data := middleware.GetCoordinator(c).Deals()
	return response.Success(c, "Deals retrieved", data, fiber.Map{"count": len(data)})
}
