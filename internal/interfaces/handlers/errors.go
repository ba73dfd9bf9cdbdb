// Package handlers holds the HTTP adapters over the session coordinator.
package handlers

import (
	"context"
	"errors"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a coordinator error to an HTTP status.
func StatusFor(err error) int {
	var ve *coordinator.ValidationError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, coordinator.ErrUnknownView),
		errors.Is(err, coordinator.ErrUnknownAuthMode):
		return fiber.StatusBadRequest
	case errors.Is(err, coordinator.ErrUnauthenticated),
		errors.Is(err, coordinator.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, coordinator.ErrForbiddenRole):
		return fiber.StatusForbidden
	case errors.Is(err, coordinator.ErrBusy),
		errors.Is(err, coordinator.ErrSignedOut),
		errors.Is(err, coordinator.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, coordinator.ErrPurchaseInconsistent):
		return fiber.StatusInternalServerError
	}
	return fiber.StatusBadGateway
}

// Fail writes err in the standard error format. Validation errors carry the field.
func Fail(c *fiber.Ctx, err error) error {
	var details any
	var ve *coordinator.ValidationError
	if errors.As(err, &ve) {
		details = fiber.Map{"field": ve.Field}
	}
	return response.Error(c, coordinator.UserMessage(err), StatusFor(err), details)
}
