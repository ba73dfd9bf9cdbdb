package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"
)

const (
	tableProfiles = "profiles"
	tableListings = "listings"
	tableOrders   = "orders"
)

// Backend adapts Client to coordinator.Backend. PostgREST has no multi-request
// transactions, so purchases go through the coordinator's compensating path.
type Backend struct {
	Client *Client
}

var _ coordinator.Backend = (*Backend)(nil)

type profileRecord struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CompanyName string    `json:"company_name"`
	OwnerName   string    `json:"owner_name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

type listingRecord struct {
	ID           string    `json:"id,omitempty"`
	SellerID     string    `json:"seller_id"`
	SellerName   string    `json:"seller_name"`
	Amount       int       `json:"amount"`
	PricePerUnit float64   `json:"price_per_unit"`
	ProjectType  string    `json:"project_type"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	ImageURL     *string   `json:"image_url"`
	VideoURL     *string   `json:"video_url"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type orderRecord struct {
	ID         string    `json:"id,omitempty"`
	ListingID  string    `json:"listing_id"`
	BuyerID    string    `json:"buyer_id"`
	SellerID   string    `json:"seller_id"`
	Amount     int       `json:"amount"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r profileRecord) toDomain() domain.SessionUser {
	return domain.SessionUser{
		ID:          r.ID,
		Email:       r.Email,
		Role:        domain.Role(r.Role),
		CompanyName: r.CompanyName,
		OwnerName:   r.OwnerName,
		Address:     r.Address,
		Phone:       r.Phone,
		Verified:    r.IsVerified,
		CreatedAt:   r.CreatedAt,
	}
}

func fromProfile(u domain.SessionUser) profileRecord {
	return profileRecord{
		ID:          u.ID,
		Email:       u.Email,
		Role:        string(u.Role),
		CompanyName: u.CompanyName,
		OwnerName:   u.OwnerName,
		Address:     u.Address,
		Phone:       u.Phone,
		IsVerified:  u.Verified,
		CreatedAt:   u.CreatedAt,
	}
}

func (r listingRecord) toDomain() domain.Listing {
	return domain.Listing{
		ID:           r.ID,
		SellerID:     r.SellerID,
		SellerName:   r.SellerName,
		Amount:       r.Amount,
		PricePerUnit: r.PricePerUnit,
		ProjectType:  domain.ProjectType(r.ProjectType),
		Location:     r.Location,
		Description:  r.Description,
		ImageURL:     r.ImageURL,
		VideoURL:     r.VideoURL,
		Status:       domain.ListingStatus(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}

func fromListing(l domain.Listing) listingRecord {
	return listingRecord{
		ID:           l.ID,
		SellerID:     l.SellerID,
		SellerName:   l.SellerName,
		Amount:       l.Amount,
		PricePerUnit: l.PricePerUnit,
		ProjectType:  string(l.ProjectType),
		Location:     l.Location,
		Description:  l.Description,
		ImageURL:     l.ImageURL,
		VideoURL:     l.VideoURL,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt,
	}
}

func (r orderRecord) toDomain() domain.Order {
	return domain.Order{
		ID:         r.ID,
		ListingID:  r.ListingID,
		BuyerID:    r.BuyerID,
		SellerID:   r.SellerID,
		Amount:     r.Amount,
		TotalPrice: r.TotalPrice,
		Status:     domain.OrderStatus(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}

func fromOrder(o domain.Order) orderRecord {
	return orderRecord{
		ID:         o.ID,
		ListingID:  o.ListingID,
		BuyerID:    o.BuyerID,
		SellerID:   o.SellerID,
		Amount:     o.Amount,
		TotalPrice: o.TotalPrice,
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
	}
}

func (b *Backend) SignUp(ctx context.Context, email, password string) (*coordinator.Identity, error) {
	resp, err := b.Client.SignUp(ctx, email, password)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return &coordinator.Identity{ID: resp.UserID, Email: resp.Email, AccessToken: resp.AccessToken}, nil
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*coordinator.Identity, error) {
	resp, err := b.Client.SignIn(ctx, email, password)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return &coordinator.Identity{ID: resp.UserID, Email: resp.Email, AccessToken: resp.AccessToken}, nil
}

func mapAuthError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == "invalid_credentials" || strings.Contains(msg, "invalid login credentials"):
		return fmt.Errorf("%w: %w", coordinator.ErrInvalidCredentials, err)
	case apiErr.Code == "user_already_exists" || strings.Contains(msg, "already registered"):
		return fmt.Errorf("%w: %w", coordinator.ErrEmailTaken, err)
	}
	return err
}

func (b *Backend) GetProfile(ctx context.Context, id string) (*domain.SessionUser, error) {
	var rows []profileRecord
	if err := b.Client.From(tableProfiles).Eq("id", id).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, coordinator.ErrNotFound
	}
	u := rows[0].toDomain()
	return &u, nil
}

func (b *Backend) InsertProfile(ctx context.Context, u domain.SessionUser) (*domain.SessionUser, error) {
	var rows []profileRecord
	if err := b.Client.From(tableProfiles).Insert(ctx, []profileRecord{fromProfile(u)}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &u, nil
	}
	out := rows[0].toDomain()
	return &out, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) error {
	body := map[string]string{}
	if patch.CompanyName != nil {
		body["company_name"] = *patch.CompanyName
	}
	if patch.OwnerName != nil {
		body["owner_name"] = *patch.OwnerName
	}
	if patch.Address != nil {
		body["address"] = *patch.Address
	}
	if len(body) == 0 {
		return nil
	}
	var rows []profileRecord
	if err := b.Client.From(tableProfiles).Eq("id", id).Update(ctx, body, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return coordinator.ErrNotFound
	}
	return nil
}

func (b *Backend) ListListings(ctx context.Context) ([]domain.Listing, error) {
	var rows []listingRecord
	if err := b.Client.From(tableListings).Order("created_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (b *Backend) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var rows []orderRecord
	if err := b.Client.From(tableOrders).Order("created_at", false).Execute(ctx, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (b *Backend) InsertListing(ctx context.Context, l domain.Listing) (*domain.Listing, error) {
	var rows []listingRecord
	if err := b.Client.From(tableListings).Insert(ctx, []listingRecord{fromListing(l)}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert listing: empty representation")
	}
	out := rows[0].toDomain()
	return &out, nil
}

func (b *Backend) InsertOrder(ctx context.Context, o domain.Order) (*domain.Order, error) {
	var rows []orderRecord
	if err := b.Client.From(tableOrders).Insert(ctx, []orderRecord{fromOrder(o)}, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert order: empty representation")
	}
	out := rows[0].toDomain()
	return &out, nil
}

// MarkListingSold patches only rows still available, so a listing sold by
// someone else in the meantime matches nothing.
func (b *Backend) MarkListingSold(ctx context.Context, listingID string) error {
	var rows []listingRecord
	err := b.Client.From(tableListings).
		Eq("id", listingID).
		Eq("status", domain.ListingAvailable).
		Update(ctx, map[string]string{"status": string(domain.ListingSold)}, &rows)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	var existing []listingRecord
	if err := b.Client.From(tableListings).Select("id,status").Eq("id", listingID).Execute(ctx, &existing); err != nil {
		return err
	}
	if len(existing) == 0 {
		return coordinator.ErrNotFound
	}
	return coordinator.ErrListingUnavailable
}

func (b *Backend) DeleteOrder(ctx context.Context, orderID string) error {
	err := b.Client.From(tableOrders).Eq("id", orderID).Delete(ctx)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}
