package coordinator

import (
	"context"
	"errors"

	"carbonmarket/internal/domain"
)

var (
	// ErrNotFound is returned by backends when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrListingUnavailable is returned by backends when a conditional sold-flip
	// matched no available listing (another buyer got there first).
	ErrListingUnavailable = errors.New("listing is no longer available")
	// ErrInvalidCredentials and ErrEmailTaken are the auth failures a backend reports.
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailTaken         = errors.New("User already registered")
)

// Identity is the authenticated identity returned by a backend's auth endpoint.
type Identity struct {
	ID          string
	Email       string
	AccessToken string
}

// Backend is the remote data service: profiles, listings and orders collections
// plus email/password authentication.
type Backend interface {
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)

	GetProfile(ctx context.Context, id string) (*domain.SessionUser, error)
	InsertProfile(ctx context.Context, u domain.SessionUser) (*domain.SessionUser, error)
	UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) error

	// ListListings and ListOrders return newest first.
	ListListings(ctx context.Context) ([]domain.Listing, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)

	InsertListing(ctx context.Context, l domain.Listing) (*domain.Listing, error)
	InsertOrder(ctx context.Context, o domain.Order) (*domain.Order, error)
	MarkListingSold(ctx context.Context, listingID string) error
	DeleteOrder(ctx context.Context, orderID string) error
}

// PurchaseCommitter is implemented by backends that can insert the order and
// flip the listing to sold in one transaction.
type PurchaseCommitter interface {
	CommitPurchase(ctx context.Context, o domain.Order) (*domain.Order, error)
}

// Registrar is implemented by backends that can create the account and its
// profile in one transaction. profile.ID is assigned from the new account.
type Registrar interface {
	SignUpWithProfile(ctx context.Context, email, password string, profile domain.SessionUser) (*domain.SessionUser, error)
}

// SessionStore is the durable local copy of the session user.
// Load returns (nil, nil) when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*domain.SessionUser, error)
	Save(ctx context.Context, u domain.SessionUser) error
	Clear(ctx context.Context) error
}

// Notifier sends transactional messages. Failures never fail the operation.
type Notifier interface {
	SendWelcome(ctx context.Context, toEmail, name string) error
	SendAccountUpdated(ctx context.Context, toEmail, name string) error
	SendPurchaseReceipt(ctx context.Context, toEmail, name string, o domain.Order) error
}
