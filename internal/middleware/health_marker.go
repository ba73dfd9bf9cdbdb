package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys for the status page counters, shared by every API instance.
const (
	KeyReqTotal  = "health:global:req_total"
	KeyReqErrors = "health:global:req_errors"
	KeyResTime   = "health:global:res_time_total"
	KeyResCount  = "health:global:res_count"
	KeyStartTime = "health:global:start_time"
	KeyLastReq   = "health:global:last_request"
	KeyErrorLog  = "health:global:error_log"
)

func untracked(c *fiber.Ctx) bool {
	if c.Method() == fiber.MethodOptions {
		return true
	}
	path := c.Path()
	return path == "/" || path == "/reset" || path == "/metrics" ||
		strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon")
}

// HealthMarker feeds the status page counters. Only API traffic counts; the
// status page, metrics scrapes and CORS preflights are skipped.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if untracked(c) {
			return c.Next()
		}

		start := time.Now()
		b, _ := json.Marshal(map[string]any{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.Path(),
			"method": c.Method(),
		})
		// the request context is gone once the handler chain returns
		ctx := context.Background()

		err := c.Next()

		failed := c.Response().StatusCode() >= 500
		if e, ok := err.(*fiber.Error); ok {
			failed = e.Code >= 500
		} else if err != nil {
			failed = true
		}
		pipe := rdb.Pipeline()
		pipe.Set(ctx, KeyLastReq, b, 0)
		pipe.Incr(ctx, KeyReqTotal)
		pipe.Incr(ctx, KeyResCount)
		pipe.IncrByFloat(ctx, KeyResTime, float64(time.Since(start).Milliseconds()))
		if failed {
			pipe.Incr(ctx, KeyReqErrors)
		}
		_, _ = pipe.Exec(ctx)
		return err
	}
}
