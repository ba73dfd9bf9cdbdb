// Package response writes the JSON envelope every API route answers with.
package response

import (
	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the success envelope. Metadata carries counts and the session role.
type SuccessBody struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Data     any    `json:"data"`
	Metadata any    `json:"metadata,omitempty"`
}

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Status string      `json:"status"`
	Error  ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Details    any    `json:"details,omitempty"`
}

const (
	statusSuccess = "success"
	statusError   = "error"
)

func write(c *fiber.Ctx, code int, message string, data, metadata any) error {
	if metadata == nil {
		metadata = fiber.Map{}
	}
	return c.Status(code).JSON(SuccessBody{Status: statusSuccess, Message: message, Data: data, Metadata: metadata})
}

// Success answers 200.
func Success(c *fiber.Ctx, message string, data, metadata any) error {
	return write(c, fiber.StatusOK, message, data, metadata)
}

// SuccessCreated answers 201 for a new account, listing or order.
func SuccessCreated(c *fiber.Ctx, message string, data, metadata any) error {
	return write(c, fiber.StatusCreated, message, data, metadata)
}

// Error answers statusCode with the failure envelope. details defaults to {}.
func Error(c *fiber.Ctx, message string, statusCode int, details any) error {
	if details == nil {
		details = fiber.Map{}
	}
	return c.Status(statusCode).JSON(ErrorBody{
		Status: statusError,
		Error:  ErrorDetail{Message: message, StatusCode: statusCode, Details: details},
	})
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusUnauthorized, nil)
}

// ListingNotFound is the 404 for a listing id missing from the session's catalog.
func ListingNotFound(c *fiber.Ctx) error {
	return Error(c, "Listing not found", fiber.StatusNotFound, nil)
}

// Unavailable answers 503 for an optional integration that is not configured.
func Unavailable(c *fiber.Ctx, message string) error {
	return Error(c, message, fiber.StatusServiceUnavailable, nil)
}
