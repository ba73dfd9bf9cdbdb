package middleware

import (
	"context"
	"encoding/json"
	"time"

	"carbonmarket/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const errorLogSize = 50

// ErrorHandler renders unhandled errors in the standard error format. 5xx errors
// are logged and, when Redis is configured, pushed onto the status page error log.
func ErrorHandler(rdb *redis.Client) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
		}
		if code >= fiber.StatusInternalServerError {
			Logger(c).Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
			if rdb != nil {
				entry, _ := json.Marshal(map[string]any{
					"time":    time.Now(),
					"traceId": GetTraceID(c),
					"method":  c.Method(),
					"path":    c.Path(),
					"message": err.Error(),
				})
				ctx := context.Background()
				rdb.LPush(ctx, KeyErrorLog, entry)
				rdb.LTrim(ctx, KeyErrorLog, 0, errorLogSize-1)
			}
		}
		return response.Error(c, message, code, nil)
	}
}
