package middleware

import (
	"strconv"
	"time"

	"carbonmarket/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics records request count, latency and in-flight gauge per matched route.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		metrics.RequestStarted()
		start := time.Now()
		err := c.Next()
		metrics.RequestFinished()

		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Method(), route, strconv.Itoa(status), time.Since(start).Seconds())
		return err
	}
}
