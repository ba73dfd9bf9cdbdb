package middleware

import (
	"regexp"
	"time"

	"carbonmarket/internal/application/coordinator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SessionConfig controls the browser session cookie.
type SessionConfig struct {
	MaxAge            time.Duration
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName = "cm.sid"
	sessionIDLocal    = "session_id"
	coordinatorLocal  = "coordinator"
)

var validSessionID = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// Session binds every request to the coordinator of its browser session. A
// missing or malformed cookie starts a fresh session.
func Session(reg *coordinator.Registry, cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(SessionCookieName)
		if !validSessionID.MatchString(sid) {
			sid = uuid.New().String()
			cookie := SessionCookie(cfg)
			cookie.Value = sid
			c.Cookie(&cookie)
		}
		c.Locals(sessionIDLocal, sid)
		c.Locals(coordinatorLocal, reg.Get(c.UserContext(), sid))
		return c.Next()
	}
}

// GetSessionID returns the current session id.
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// GetCoordinator returns the session coordinator set by Session.
func GetCoordinator(c *fiber.Ctx) *coordinator.Coordinator {
	co, _ := c.Locals(coordinatorLocal).(*coordinator.Coordinator)
	return co
}

// SessionCookie returns the cookie template; SameSite=None only for cross-site dev frontends.
func SessionCookie(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}
