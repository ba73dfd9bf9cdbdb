package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"
	"carbonmarket/internal/infrastructure/database"
	"carbonmarket/internal/infrastructure/sessionstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*coordinator.Registry, *database.Store) {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	store := &database.Store{DB: db}
	return coordinator.NewRegistry(coordinator.Deps{Backend: store}, sessionstore.FileFactory(t.TempDir())), store
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookieName {
			return ck
		}
	}
	return nil
}

func TestSession_IssuesCookieAndReusesCoordinator(t *testing.T) {
	reg, _ := newRegistry(t)
	app := fiber.New()
	app.Use(Session(reg, SessionConfig{}))
	app.Get("/sid", func(c *fiber.Ctx) error {
		require.NotNil(t, GetCoordinator(c))
		return c.SendString(GetSessionID(c))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/sid", nil))
	require.NoError(t, err)
	ck := sessionCookie(resp)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, ck.Value, string(body))

	req := httptest.NewRequest("GET", "/sid", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: ck.Value})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Nil(t, sessionCookie(resp), "existing session keeps its cookie")
	assert.Equal(t, 1, reg.Len())

	req = httptest.NewRequest("GET", "/sid", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "../bad"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotNil(t, sessionCookie(resp))
	assert.Equal(t, 2, reg.Len())
}

func TestRequireAuthAndRole(t *testing.T) {
	reg, _ := newRegistry(t)
	app := fiber.New()
	app.Use(Session(reg, SessionConfig{}))
	app.Post("/login", func(c *fiber.Ctx) error {
		_, err := GetCoordinator(c).Authenticate(c.UserContext(), coordinator.ModeSignUp,
			coordinator.Credentials{Email: "buyer@example.com", Password: "secret1"}, domain.RoleBuyer)
		return err
	})
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error { return c.SendString(GetUser(c).Email) })
	app.Get("/seller", RequireAuth(), RequireRole(domain.RoleSeller), func(c *fiber.Ctx) error { return c.SendStatus(204) })

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	sid := sessionCookie(resp).Value

	with := func(method, path string) *http.Response {
		req := httptest.NewRequest(method, path, nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sid})
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}
	assert.Equal(t, fiber.StatusOK, with("POST", "/login").StatusCode)
	resp = with("GET", "/me")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "buyer@example.com", string(body))
	assert.Equal(t, fiber.StatusForbidden, with("GET", "/seller").StatusCode)
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".carbonmarket.app", DevPassword: "pw"}))
	app.Get("/x", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	try := func(method, origin, pw string) *http.Response {
		req := httptest.NewRequest(method, "/x", nil)
		req.Header.Set("Origin", origin)
		if pw != "" {
			req.Header.Set("dev-password", pw)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := try("GET", "https://www.carbonmarket.app", "")
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://www.carbonmarket.app", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, fiber.StatusNoContent, try("OPTIONS", "http://localhost:5173", "").StatusCode)
	assert.Equal(t, 200, try("GET", "https://preview.example.dev", "pw").StatusCode)
	assert.Equal(t, fiber.StatusForbidden, try("GET", "https://evil.example", "").StatusCode)
}

func TestHealthMarkerAndErrorHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(rdb)})
	app.Use(Tracing(), HealthMarker(rdb))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(200) })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db exploded") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	for _, p := range []string{"/ok", "/boom", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}

	total, _ := mr.Get(KeyReqTotal)
	failed, _ := mr.Get(KeyReqErrors)
	assert.Equal(t, "2", total)
	assert.Equal(t, "1", failed)

	entries, err := rdb.LRange(context.Background(), KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(entries[0]), &entry))
	assert.Equal(t, "db exploded", entry["message"])
}

func TestErrorHandler_Format(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Use(Tracing())
	app.Get("/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	req := httptest.NewRequest("GET", "/teapot", nil)
	req.Header.Set("X-Trace-Id", "trace-1234")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "trace-1234", resp.Header.Get("X-Trace-Id"))

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "short and stout", out["error"].(map[string]any)["message"])
}
