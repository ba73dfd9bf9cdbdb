package middleware

import (
	"regexp"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	traceIDHeader = "X-Trace-Id"
	traceIDLocal  = "trace_id"
)

var validTraceID = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// Tracing propagates an incoming X-Trace-Id or mints a new one, and puts a
// logger tagged with it on the request context.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(traceIDHeader)
		if !validTraceID.MatchString(traceID) {
			traceID = uuid.New().String()
		}
		c.Locals(traceIDLocal, traceID)
		c.Set(traceIDHeader, traceID)
		l := log.With().Str("trace_id", traceID).Logger()
		c.SetUserContext(l.WithContext(c.UserContext()))
		return c.Next()
	}
}

func GetTraceID(c *fiber.Ctx) string {
	if id, ok := c.Locals(traceIDLocal).(string); ok {
		return id
	}
	return ""
}

// Logger returns the request logger, falling back to the global one when
// Tracing did not run.
func Logger(c *fiber.Ctx) *zerolog.Logger {
	l := zerolog.Ctx(c.UserContext())
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}
