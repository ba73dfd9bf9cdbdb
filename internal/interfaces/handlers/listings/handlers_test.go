package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"
	"carbonmarket/internal/infrastructure/database"
	"carbonmarket/internal/infrastructure/sessionstore"
	"carbonmarket/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sellerSID = "listings-handler-seller-01"

func setupListingsApp(t *testing.T, withEvents bool) *fiber.App {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	store := &database.Store{DB: db}
	reg := coordinator.NewRegistry(coordinator.Deps{Backend: store}, sessionstore.FileFactory(t.TempDir()))

	_, err = reg.Get(context.Background(), sellerSID).Authenticate(context.Background(), coordinator.ModeSignUp,
		coordinator.Credentials{Email: "seller@example.com", Password: "secret1", CompanyName: "GreenForest Ltd"}, domain.RoleSeller)
	require.NoError(t, err)

	h := &Handlers{}
	if withEvents {
		h.Source = store
	}
	app := fiber.New()
	app.Use(middleware.Session(reg, middleware.SessionConfig{}))
	app.Post("/listings", middleware.RequireAuth(), middleware.RequireRole(domain.RoleSeller), h.Create)
	app.Get("/listings/mine", middleware.RequireAuth(), h.Mine)
	app.Get("/listings/:id/events", middleware.RequireAuth(), h.Events)
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sellerSID})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env.Data
}

func TestCreate_PublishesWithMedia(t *testing.T) {
	app := setupListingsApp(t, true)
	resp, data := call(t, app, "POST", "/listings", CreateListingRequest{
		Amount: 800, PricePerUnit: 22, ProjectType: domain.ProjectRenewableEnergy,
		Location: "Atacama Desert, Chile", Description: "Solar farm", ImageURL: "https://cdn.example/solar.png",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var l domain.Listing
	require.NoError(t, json.Unmarshal(data, &l))
	assert.Equal(t, "GreenForest Ltd", l.SellerName)
	require.NotNil(t, l.ImageURL)
	assert.Nil(t, l.VideoURL)

	resp, data = call(t, app, "GET", "/listings/mine", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var mine []domain.Listing
	require.NoError(t, json.Unmarshal(data, &mine))
	assert.Len(t, mine, 1)

	resp, data = call(t, app, "GET", "/listings/"+l.ID+"/events", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var events []domain.ListingEvent
	require.NoError(t, json.Unmarshal(data, &events))
	require.NotEmpty(t, events)
	assert.Equal(t, domain.ListingEventCreated, events[0].EventType)
}

func TestCreate_InvalidDraft(t *testing.T) {
	app := setupListingsApp(t, true)
	resp, _ := call(t, app, "POST", "/listings", CreateListingRequest{
		Amount: 10, PricePerUnit: 5, ProjectType: "Geothermal", Location: "x", Description: "y",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEvents(t *testing.T) {
	app := setupListingsApp(t, false)
	resp, _ := call(t, app, "GET", "/listings/anything/events", nil)
	assert.Equal(t, fiber.StatusNotImplemented, resp.StatusCode)

	app = setupListingsApp(t, true)
	resp, _ = call(t, app, "GET", "/listings/unknown/events", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
