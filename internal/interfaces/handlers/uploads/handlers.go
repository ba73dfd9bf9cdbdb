package uploads

import (
	"errors"

	uploadsvc "carbonmarket/internal/application/uploads"
	"carbonmarket/internal/middleware"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	Kind     uploadsvc.Kind `json:"kind"`
	FileName string         `json:"fileName"`
}

// ListingMedia POST /api/v1/uploads/listing-media (seller only).
func (h *Handlers) ListingMedia(c *fiber.Ctx) error {
	if h.Service == nil {
		return response.Unavailable(c, "Media uploads are not configured")
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.SignListingMedia(c.UserContext(), middleware.GetUser(c).ID, req.Kind, req.FileName)
	if err != nil {
		if errors.Is(err, uploadsvc.ErrBadKind) || errors.Is(err, uploadsvc.ErrBadFileName) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		middleware.Logger(c).Error().Err(err).Str("kind", string(req.Kind)).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusBadGateway, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
