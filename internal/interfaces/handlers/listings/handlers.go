package listings

import (
	"context"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"
	"carbonmarket/internal/interfaces/handlers"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// EventSource reads a listing's history. Only the database backend keeps one.
type EventSource interface {
	ListingEvents(ctx context.Context, listingID string) ([]domain.ListingEvent, error)
}

type Handlers struct {
	Source EventSource
}

type CreateListingRequest struct {
	Amount       int                `json:"amount"`
	PricePerUnit float64            `json:"pricePerUnit"`
	ProjectType  domain.ProjectType `json:"projectType"`
	Location     string             `json:"location"`
	Description  string             `json:"description"`
	ImageURL     string             `json:"imageUrl"`
	VideoURL     string             `json:"videoUrl"`
}

// Create POST /api/v1/listings (seller only). Seller id and name come from the session.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	l, err := middleware.GetCoordinator(c).ListNewCredit(c.UserContext(), coordinator.ListingDraft{
		Amount:       req.Amount,
		PricePerUnit: req.PricePerUnit,
		ProjectType:  req.ProjectType,
		Location:     req.Location,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		VideoURL:     req.VideoURL,
	})
	if err != nil {
		return handlers.Fail(c, err)
	}
	return response.SuccessCreated(c, "Listing published", l, nil)
}

// Mine GET /api/v1/listings/mine lists the seller's listings, sold included.
func (h *Handlers) Mine(c *fiber.Ctx) error {
	data := middleware.GetCoordinator(c).SellerListings()
	return response.Success(c, "Listings retrieved", data, fiber.Map{"count": len(data)})
}

// Events GET /api/v1/listings/:id/events
func (h *Handlers) Events(c *fiber.Ctx) error {
	if h.Source == nil {
		return response.Error(c, "Listing history is not available with this backend", fiber.StatusNotImplemented, nil)
	}
	id := c.Params("id")
	if _, ok := middleware.GetCoordinator(c).Listing(id); !ok {
		return response.ListingNotFound(c)
	}
	events, err := h.Source.ListingEvents(c.UserContext(), id)
	if err != nil {
		middleware.Logger(c).Error().Err(err).Str("listing_id", id).Msg("listing events: query failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listing events", events, nil)
}
