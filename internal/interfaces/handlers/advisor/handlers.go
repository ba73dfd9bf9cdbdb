package advisor

import (
	"errors"

	advisorsvc "carbonmarket/internal/application/advisor"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Advisor *advisorsvc.Client
}

// SummarizeListing POST /api/v1/advisor/listings/:id/summary
func (h *Handlers) SummarizeListing(c *fiber.Ctx) error {
	l, ok := middleware.GetCoordinator(c).Listing(c.Params("id"))
	if !ok {
		return response.ListingNotFound(c)
	}
	text, err := h.Advisor.SummarizeProject(c.UserContext(), l.Description)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Project analysis", fiber.Map{"listingId": l.ID, "text": text}, nil)
}

// SummarizeDraft POST /api/v1/advisor/summary {description} lets a seller check a
// description before publishing it.
func (h *Handlers) SummarizeDraft(c *fiber.Ctx) error {
	var req struct {
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	text, err := h.Advisor.SummarizeProject(c.UserContext(), req.Description)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Project analysis", fiber.Map{"text": text}, nil)
}

// Trends GET /api/v1/advisor/trends
func (h *Handlers) Trends(c *fiber.Ctx) error {
	text, err := h.Advisor.MarketTrends(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, "Market insights", fiber.Map{"text": text}, nil)
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, advisorsvc.ErrDisabled):
		return response.Unavailable(c, err.Error())
	case errors.Is(err, advisorsvc.ErrEmptyInput):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	log.Warn().Err(err).Str("path", c.Path()).Msg("advisor request failed")
	return response.Error(c, "AI insights are unavailable right now", fiber.StatusBadGateway, nil)
}
