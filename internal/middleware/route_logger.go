package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RouteLogger logs one line per request. 5xx answers log at error level.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		level := zerolog.InfoLevel
		if status >= fiber.StatusInternalServerError {
			level = zerolog.ErrorLevel
		}
		ev := Logger(c).WithLevel(level).Str("method", c.Method()).Str("path", c.Path()).
			Int("status", status).Int64("ms", time.Since(start).Milliseconds())
		if sid := GetSessionID(c); sid != "" {
			ev = ev.Str("session", sid[:8])
		}
		ev.Msg("request")
		return err
	}
}
