package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, h http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL + "/", APIKey: "anon-key"})
	require.NoError(t, err)
	return &Backend{Client: c}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)
}

func TestSignIn(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "buyer@example.com", body["email"])
		_, _ = io.WriteString(w, `{"access_token":"tok","user":{"id":"u-1","email":"buyer@example.com"}}`)
	})

	id, err := b.SignIn(context.Background(), "buyer@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, "tok", id.AccessToken)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)
	})

	_, err := b.SignIn(context.Background(), "buyer@example.com", "nope")
	assert.ErrorIs(t, err, coordinator.ErrInvalidCredentials)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
}

func TestSignUp_BareUserAndDuplicate(t *testing.T) {
	calls := 0
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		calls++
		if calls == 1 {
			_, _ = io.WriteString(w, `{"id":"u-2","email":"seller@example.com"}`)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`)
	})

	id, err := b.SignUp(context.Background(), "seller@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u-2", id.ID)
	assert.Empty(t, id.AccessToken)

	_, err = b.SignUp(context.Background(), "seller@example.com", "secret1")
	assert.ErrorIs(t, err, coordinator.ErrEmailTaken)
}

func TestGetProfile(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		if r.URL.Query().Get("id") == "eq.missing" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		assert.Equal(t, "eq.u-1", r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `[{"id":"u-1","email":"s@example.com","role":"seller","company_name":"EcoSellers",
			"owner_name":"John Doe","address":"123 Climate Way","phone":"+123456789","is_verified":true,
			"created_at":"2026-01-02T03:04:05Z"}]`)
	})

	_, err := b.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, coordinator.ErrNotFound)

	u, err := b.GetProfile(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, u.Role)
	assert.Equal(t, "EcoSellers", u.CompanyName)
	assert.True(t, u.Verified)
	assert.Equal(t, 2026, u.CreatedAt.Year())
}

func TestListListings_OrdersNewestFirst(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		_, _ = io.WriteString(w, `[{"id":"l-1","seller_id":"s-1","seller_name":"GreenForest Ltd","amount":1500,
			"price_per_unit":18,"project_type":"Reforestation","location":"Amazon Basin, Brazil",
			"description":"d","image_url":null,"video_url":null,"status":"available","created_at":"2026-01-02T03:04:05Z"}]`)
	})

	listings, err := b.ListListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 1500, listings[0].Amount)
	assert.Equal(t, domain.ProjectReforestation, listings[0].ProjectType)
	assert.True(t, listings[0].Available())
	assert.Nil(t, listings[0].ImageURL)
}

func TestMarkListingSold(t *testing.T) {
	state := "available"
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.Method {
		case http.MethodPatch:
			assert.Equal(t, "eq.l-1", q.Get("id"))
			assert.Equal(t, "eq.available", q.Get("status"))
			assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "sold", body["status"])
			if state == "available" {
				state = "sold"
				_, _ = io.WriteString(w, `[{"id":"l-1","status":"sold"}]`)
				return
			}
			_, _ = io.WriteString(w, `[]`)
		case http.MethodGet:
			_, _ = io.WriteString(w, `[{"id":"l-1","status":"sold"}]`)
		}
	})

	require.NoError(t, b.MarkListingSold(context.Background(), "l-1"))
	assert.ErrorIs(t, b.MarkListingSold(context.Background(), "l-1"), coordinator.ErrListingUnavailable)
}

// fakeRest keeps just enough PostgREST behaviour to drive the coordinator.
type fakeRest struct {
	mu         sync.Mutex
	listings   []listingRecord
	orders     []orderRecord
	failPatch  bool
	deletedIDs []string
}

func (f *fakeRest) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := r.URL.Query()
	switch {
	case r.URL.Path == "/rest/v1/listings" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(f.listings)
	case r.URL.Path == "/rest/v1/orders" && r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(f.orders)
	case r.URL.Path == "/rest/v1/orders" && r.Method == http.MethodPost:
		var rows []orderRecord
		_ = json.NewDecoder(r.Body).Decode(&rows)
		f.orders = append(f.orders, rows...)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rows)
	case r.URL.Path == "/rest/v1/listings" && r.Method == http.MethodPatch:
		if f.failPatch {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"message":"upstream unavailable"}`)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	case r.URL.Path == "/rest/v1/orders" && r.Method == http.MethodDelete:
		id := q.Get("id")[len("eq."):]
		f.deletedIDs = append(f.deletedIDs, id)
		kept := f.orders[:0]
		for _, o := range f.orders {
			if o.ID != id {
				kept = append(kept, o)
			}
		}
		f.orders = kept
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"unexpected `+r.Method+" "+r.URL.Path+`"}`)
	}
}

type staticStore struct{ u domain.SessionUser }

func (s *staticStore) Load(context.Context) (*domain.SessionUser, error) {
	u := s.u
	return &u, nil
}
func (s *staticStore) Save(context.Context, domain.SessionUser) error { return nil }
func (s *staticStore) Clear(context.Context) error                    { return nil }

func TestCoordinatorPurchase_CompensatesOnFailedListingUpdate(t *testing.T) {
	rest := &fakeRest{
		listings: []listingRecord{{ID: "l-1", SellerID: "s-1", SellerName: "EcoCapture", Amount: 3000,
			PricePerUnit: 15, ProjectType: "Methane Capture", Location: "Jakarta", Description: "d", Status: "available"}},
		failPatch: true,
	}
	srv := httptest.NewServer(rest)
	defer srv.Close()
	client, err := New(Config{URL: srv.URL, APIKey: "anon-key"})
	require.NoError(t, err)

	c := coordinator.New(coordinator.Deps{
		Backend: &Backend{Client: client},
		Store:   &staticStore{u: domain.SessionUser{ID: "b-1", Email: "b@example.com", Role: domain.RoleBuyer}},
	})
	c.Start(context.Background())
	require.NotNil(t, c.User())

	o, err := c.Purchase(context.Background(), "l-1")
	assert.Nil(t, o)
	assert.ErrorIs(t, err, coordinator.ErrPurchaseRolledBack)

	rest.mu.Lock()
	defer rest.mu.Unlock()
	assert.Empty(t, rest.orders)
	require.Len(t, rest.deletedIDs, 1)
}
