// Package coordinator owns one application instance's state: the session user,
// the cached catalog and the current view. Every mutating intent from the view
// layer goes through here, and the remote backend is treated as the source of truth.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"carbonmarket/internal/domain"
	"carbonmarket/internal/metrics"
	"carbonmarket/internal/pkg/constants"
	"carbonmarket/internal/pkg/validation"

	"github.com/rs/zerolog/log"
)

// View is the screen the view layer should render.
type View string

const (
	ViewHome      View = "home"
	ViewLogin     View = "login"
	ViewSignup    View = "signup"
	ViewDashboard View = "dashboard"
	ViewProfile   View = "profile"
)

func (v View) valid() bool {
	switch v {
	case ViewHome, ViewLogin, ViewSignup, ViewDashboard, ViewProfile:
		return true
	}
	return false
}

// requiresSession reports whether v redirects to home when logged out.
func (v View) requiresSession() bool {
	return v == ViewDashboard || v == ViewProfile
}

// AuthMode selects sign-up or sign-in.
type AuthMode string

const (
	ModeSignUp AuthMode = "signup"
	ModeSignIn AuthMode = "signin"
)

// Credentials is the typed auth form. CompanyName and OwnerName only matter at sign-up.
type Credentials struct {
	Email       string
	Password    string
	CompanyName string
	OwnerName   string
}

// AuthDraft is the part of the auth form kept between attempts. Never holds the password.
type AuthDraft struct {
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
	OwnerName   string `json:"ownerName"`
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the last user-visible message.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// State is a rendering snapshot of the coordinator.
type State struct {
	View      View                `json:"view"`
	User      *domain.SessionUser `json:"user"`
	Listings  []domain.Listing    `json:"listings"`
	Orders    []domain.Order      `json:"orders"`
	AuthRole  domain.Role         `json:"authRole"`
	AuthDraft AuthDraft           `json:"authDraft"`
	Notice    *Notice             `json:"notice,omitempty"`
}

// Deps wires a Coordinator. Notifier is optional; Timeout of zero means no deadline.
type Deps struct {
	Backend  Backend
	Store    SessionStore
	Notifier Notifier
	Timeout  time.Duration
	Now      func() time.Time
}

type Coordinator struct {
	backend  Backend
	store    SessionStore
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time

	mu    sync.RWMutex
	state State

	inflight  atomic.Bool
	lastUsed  atomic.Int64
	startOnce sync.Once

	// sessMu serializes writes of the session user against Logout. sessionGen
	// moves on every logout so an intent started before it cannot bring the
	// session back.
	sessMu     sync.Mutex
	sessionGen atomic.Uint64
}

func New(d Deps) *Coordinator {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	c := &Coordinator{
		backend:  d.Backend,
		store:    d.Store,
		notifier: d.Notifier,
		timeout:  d.Timeout,
		now:      now,
		state: State{
			View:     ViewHome,
			AuthRole: domain.RoleBuyer,
			Listings: []domain.Listing{},
			Orders:   []domain.Order{},
		},
	}
	c.touch()
	return c
}

// Start restores the persisted session and loads the catalog. Runs once per instance.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.RestoreSession(ctx)
		_ = c.RefreshCatalog(ctx)
	})
}

// Snapshot returns a copy of the current state safe to hand to the view layer.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.state
	if c.state.User != nil {
		u := *c.state.User
		s.User = &u
	}
	if c.state.Notice != nil {
		n := *c.state.Notice
		s.Notice = &n
	}
	s.Listings = append([]domain.Listing(nil), c.state.Listings...)
	s.Orders = append([]domain.Order(nil), c.state.Orders...)
	return s
}

// User returns a copy of the session user, or nil when logged out.
func (c *Coordinator) User() *domain.SessionUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.User == nil {
		return nil
	}
	u := *c.state.User
	return &u
}

// RestoreSession loads the persisted session user without contacting the backend.
// An unreadable or malformed blob is discarded and the app continues logged out.
func (c *Coordinator) RestoreSession(ctx context.Context) bool {
	u, err := c.store.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session restore: discarding unreadable session")
		c.clearStore(ctx)
		return false
	}
	if u == nil {
		return false
	}
	if !u.Valid() {
		log.Warn().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("session restore: discarding invalid session user")
		c.clearStore(ctx)
		return false
	}
	c.mu.Lock()
	c.state.User = u
	c.mu.Unlock()
	log.Info().Str("user_id", u.ID).Msg("session restored")
	return true
}

// RefreshCatalog re-reads listings and orders. On failure the cache is left as it was.
func (c *Coordinator) RefreshCatalog(ctx context.Context) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	listings, err := c.backend.ListListings(ctx)
	if err != nil {
		log.Error().Err(err).Msg("refresh catalog: fetch listings")
		return fmt.Errorf("fetch listings: %w", err)
	}
	orders, err := c.backend.ListOrders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("refresh catalog: fetch orders")
		return fmt.Errorf("fetch orders: %w", err)
	}
	sort.SliceStable(listings, func(i, j int) bool { return listings[i].CreatedAt.After(listings[j].CreatedAt) })
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if listings == nil {
		listings = []domain.Listing{}
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	c.mu.Lock()
	c.state.Listings = listings
	c.state.Orders = orders
	c.mu.Unlock()
	return nil
}

// SetView navigates. Session-only views fall back to home when logged out.
func (c *Coordinator) SetView(v View) (View, error) {
	if !v.valid() {
		return "", ErrUnknownView
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.requiresSession() && c.state.User == nil {
		v = ViewHome
	}
	c.state.View = v
	return v, nil
}

// SetAuthRole sets the role selector of the auth form.
func (c *Coordinator) SetAuthRole(role domain.Role) error {
	if !role.Valid() {
		return invalid("role", "Role must be buyer or seller")
	}
	c.mu.Lock()
	c.state.AuthRole = role
	c.mu.Unlock()
	return nil
}

// Authenticate signs up or signs in, loads (or at sign-up creates) the profile,
// persists it as the session and moves to the dashboard.
func (c *Coordinator) Authenticate(ctx context.Context, mode AuthMode, cred Credentials, role domain.Role) (*domain.SessionUser, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if mode != ModeSignUp && mode != ModeSignIn {
		return nil, c.fail(ErrUnknownAuthMode)
	}
	gen := c.sessionGen.Load()
	c.mu.Lock()
	c.state.AuthDraft = AuthDraft{Email: cred.Email, CompanyName: cred.CompanyName, OwnerName: cred.OwnerName}
	if role == "" {
		role = c.state.AuthRole
	}
	c.mu.Unlock()

	u, err := c.authenticate(ctx, mode, cred, role)
	metrics.AuthAttempt(string(mode), err == nil)
	if err != nil {
		log.Warn().Err(err).Str("mode", string(mode)).Str("email", cred.Email).Msg("authentication failed")
		return nil, c.fail(err)
	}

	if !c.commitSession(ctx, gen, *u, "Welcome, "+u.CompanyName) {
		log.Info().Str("user_id", u.ID).Msg("authentication finished after logout, result dropped")
		return nil, ErrSignedOut
	}
	log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Str("mode", string(mode)).Msg("authenticated")

	if mode == ModeSignUp && c.notifier != nil {
		if err := c.notifier.SendWelcome(ctx, u.Email, u.OwnerName); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID).Msg("welcome email failed")
		}
	}
	out := *u
	return &out, nil
}

func (c *Coordinator) authenticate(ctx context.Context, mode AuthMode, cred Credentials, role domain.Role) (*domain.SessionUser, error) {
	email := strings.TrimSpace(strings.ToLower(cred.Email))
	if email == "" || cred.Password == "" {
		return nil, invalid("email", "Email and password are required")
	}
	if !validation.IsValidEmail(email) {
		return nil, invalid("email", "Invalid email format")
	}
	if mode == ModeSignUp {
		if !role.Valid() {
			return nil, invalid("role", "Role must be buyer or seller")
		}
		if !validation.IsValidPassword(cred.Password) {
			return nil, invalid("password", fmt.Sprintf("Password must be at least %d characters", validation.MinPasswordLen))
		}
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if reg, ok := c.backend.(Registrar); ok && mode == ModeSignUp {
		created, err := reg.SignUpWithProfile(ctx, email, cred.Password, newProfile("", email, cred, role, c.now()))
		if err != nil {
			return nil, err
		}
		return created, nil
	}

	var (
		ident *Identity
		err   error
	)
	if mode == ModeSignUp {
		ident, err = c.backend.SignUp(ctx, email, cred.Password)
	} else {
		ident, err = c.backend.SignIn(ctx, email, cred.Password)
	}
	if err != nil {
		return nil, err
	}
	if ident == nil || ident.ID == "" {
		return nil, ErrMissingIdentity
	}

	profile, err := c.backend.GetProfile(ctx, ident.ID)
	switch {
	case err == nil:
		return profile, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load profile: %w", err)
	}

	// Without a transactional sign-up an account can outlive a failed profile
	// insert; signing in creates the missing profile from the form.
	if !role.Valid() {
		role = domain.RoleBuyer
	}
	if mode == ModeSignIn {
		log.Warn().Str("user_id", ident.ID).Msg("account has no profile, creating it at sign-in")
	}
	created, err := c.backend.InsertProfile(ctx, newProfile(ident.ID, email, cred, role, c.now()))
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

// newProfile fills the sign-up defaults for blank form fields.
func newProfile(id, email string, cred Credentials, role domain.Role, now time.Time) domain.SessionUser {
	company := strings.TrimSpace(cred.CompanyName)
	if company == "" {
		company = constants.DefaultCompany(role)
	}
	owner := strings.TrimSpace(cred.OwnerName)
	if owner == "" {
		owner = constants.DefaultOwnerName
	}
	return domain.SessionUser{
		ID:          id,
		Email:       email,
		Role:        role,
		CompanyName: company,
		OwnerName:   owner,
		Address:     constants.DefaultAddress,
		Phone:       constants.DefaultPhone,
		Verified:    true,
		CreatedAt:   now,
	}
}

// UpdateProfile applies a partial update to the session user's profile. Id and role never change.
func (c *Coordinator) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (*domain.SessionUser, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	gen := c.sessionGen.Load()
	current := c.User()
	if current == nil {
		return nil, c.fail(ErrUnauthenticated)
	}
	if err := validatePatch(patch); err != nil {
		return nil, c.fail(err)
	}

	opCtx, cancel := c.opContext(ctx)
	err := c.backend.UpdateProfile(opCtx, current.ID, patch)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("user_id", current.ID).Msg("profile update failed")
		return nil, c.fail(fmt.Errorf("update profile: %w", err))
	}

	updated := patch.Apply(*current)
	if !c.commitSession(ctx, gen, updated, "Profile updated") {
		log.Info().Str("user_id", updated.ID).Msg("profile update finished after logout, session not restored")
		return nil, ErrSignedOut
	}

	if c.notifier != nil {
		if err := c.notifier.SendAccountUpdated(ctx, updated.Email, updated.OwnerName); err != nil {
			log.Warn().Err(err).Str("user_id", updated.ID).Msg("account updated email failed")
		}
	}
	out := updated
	return &out, nil
}

func validatePatch(p domain.ProfilePatch) error {
	if p.Empty() {
		return invalid("profile", "No profile fields to update")
	}
	if p.CompanyName != nil && validation.IsBlank(*p.CompanyName) {
		return invalid("companyName", "Company name cannot be empty")
	}
	if p.OwnerName != nil && validation.IsBlank(*p.OwnerName) {
		return invalid("ownerName", "Owner name cannot be empty")
	}
	return nil
}

// Purchase buys listing listingID for the session user. A missing session, an
// unknown listing, a listing that is no longer available or the user's own
// listing is a silent no-op and returns (nil, nil).
func (c *Coordinator) Purchase(ctx context.Context, listingID string) (*domain.Order, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	user := c.User()
	listing := c.cachedListing(listingID)
	if user == nil || listing == nil || !listing.Available() || listing.SellerID == user.ID {
		log.Debug().Str("listing_id", listingID).Bool("has_user", user != nil).Msg("purchase ignored: precondition not met")
		metrics.Purchase(metrics.OutcomeIgnored)
		return nil, nil
	}

	order := domain.NewOrder(*listing, user.ID, c.now())
	created, err := c.commitPurchase(ctx, order)
	switch {
	case errors.Is(err, ErrListingUnavailable):
		log.Info().Str("listing_id", listingID).Msg("purchase ignored: listing sold concurrently")
		metrics.Purchase(metrics.OutcomeIgnored)
		return nil, nil
	case errors.Is(err, ErrPurchaseInconsistent):
		log.Error().Err(err).Str("listing_id", listingID).Str("order_id", order.ID).Msg("purchase left inconsistent state")
		metrics.Purchase(metrics.OutcomeInconsistent)
		return nil, c.fail(err)
	case errors.Is(err, ErrPurchaseRolledBack):
		log.Error().Err(err).Str("listing_id", listingID).Msg("purchase rolled back")
		metrics.Purchase(metrics.OutcomeRolledBack)
		return nil, c.fail(err)
	case err != nil:
		log.Error().Err(err).Str("listing_id", listingID).Msg("purchase failed")
		metrics.Purchase(metrics.OutcomeFailed)
		return nil, c.fail(err)
	}

	metrics.Purchase(metrics.OutcomeCompleted)
	log.Info().Str("listing_id", listingID).Str("order_id", created.ID).Str("buyer_id", user.ID).
		Float64("total_price", created.TotalPrice).Msg("purchase completed")
	_ = c.RefreshCatalog(ctx)
	c.notify(NoticeSuccess, fmt.Sprintf("Transaction complete! %d tonnes of impact logged and the marketplace updated.", created.Amount))

	if c.notifier != nil {
		if err := c.notifier.SendPurchaseReceipt(ctx, user.Email, user.OwnerName, *created); err != nil {
			log.Warn().Err(err).Str("order_id", created.ID).Msg("purchase receipt email failed")
		}
	}
	return created, nil
}

// commitPurchase writes the order and the sold flip as one logical transaction.
// Without backend transactions the inserted order is deleted again when the flip fails.
func (c *Coordinator) commitPurchase(ctx context.Context, order domain.Order) (*domain.Order, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if tx, ok := c.backend.(PurchaseCommitter); ok {
		return tx.CommitPurchase(ctx, order)
	}

	created, err := c.backend.InsertOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	flipErr := c.backend.MarkListingSold(ctx, order.ListingID)
	if flipErr == nil {
		return created, nil
	}
	if delErr := c.backend.DeleteOrder(ctx, created.ID); delErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrPurchaseInconsistent, errors.Join(flipErr, delErr))
	}
	if errors.Is(flipErr, ErrListingUnavailable) {
		return nil, flipErr
	}
	return nil, fmt.Errorf("%w: %w", ErrPurchaseRolledBack, flipErr)
}

// ListingDraft is the typed new-listing form.
type ListingDraft struct {
	Amount       int
	PricePerUnit float64
	ProjectType  domain.ProjectType
	Location     string
	Description  string
	ImageURL     string
	VideoURL     string
}

// Validate checks the draft against the listing form constraints.
func (d ListingDraft) Validate() error {
	if !validation.IsValidAmount(d.Amount) {
		return invalid("amount", fmt.Sprintf("Amount must be at least %d tonne", validation.MinListingAmount))
	}
	if !validation.IsValidPrice(d.PricePerUnit) {
		return invalid("pricePerUnit", fmt.Sprintf("Price per tonne must be at least %.1f", validation.MinPricePerUnit))
	}
	if !validation.HasCentPrecision(d.PricePerUnit) {
		return invalid("pricePerUnit", "Price per tonne can have at most 2 decimal places")
	}
	if !d.ProjectType.Valid() {
		return invalid("projectType", "Unknown project type")
	}
	if validation.IsBlank(d.Location) {
		return invalid("location", "Location is required")
	}
	if validation.IsBlank(d.Description) {
		return invalid("description", "Description is required")
	}
	return nil
}

// ListNewCredit creates an available listing owned by the session user, who must be a seller.
// Seller id and display name always come from the session, never from the draft.
func (c *Coordinator) ListNewCredit(ctx context.Context, d ListingDraft) (*domain.Listing, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	user := c.User()
	if user == nil {
		return nil, c.fail(ErrUnauthenticated)
	}
	if user.Role != domain.RoleSeller {
		return nil, c.fail(ErrForbiddenRole)
	}
	if err := d.Validate(); err != nil {
		return nil, c.fail(err)
	}

	l := domain.Listing{
		SellerID:     user.ID,
		SellerName:   user.CompanyName,
		Amount:       d.Amount,
		PricePerUnit: d.PricePerUnit,
		ProjectType:  d.ProjectType,
		Location:     strings.TrimSpace(d.Location),
		Description:  strings.TrimSpace(d.Description),
		Status:       domain.ListingAvailable,
		CreatedAt:    c.now(),
	}
	l.ImageURL = optional(d.ImageURL)
	l.VideoURL = optional(d.VideoURL)

	opCtx, cancel := c.opContext(ctx)
	created, err := c.backend.InsertListing(opCtx, l)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("seller_id", user.ID).Msg("create listing failed")
		return nil, c.fail(fmt.Errorf("create listing: %w", err))
	}
	metrics.ListingCreated()
	log.Info().Str("listing_id", created.ID).Str("seller_id", user.ID).Int("amount", created.Amount).Msg("listing created")

	_ = c.RefreshCatalog(ctx)
	c.notify(NoticeSuccess, "Listing published")
	return created, nil
}

// Logout clears the session in memory and in the store. Never fails.
func (c *Coordinator) Logout(ctx context.Context) {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	c.sessionGen.Add(1)
	c.mu.Lock()
	uid := ""
	if c.state.User != nil {
		uid = c.state.User.ID
	}
	c.state.User = nil
	c.state.View = ViewHome
	c.state.AuthDraft = AuthDraft{}
	c.state.Notice = nil
	c.mu.Unlock()
	c.clearStore(ctx)
	log.Info().Str("user_id", uid).Msg("logged out")
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (c *Coordinator) cachedListing(id string) *domain.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.state.Listings {
		if c.state.Listings[i].ID == id {
			l := c.state.Listings[i]
			return &l
		}
	}
	return nil
}

func (c *Coordinator) persist(ctx context.Context, u domain.SessionUser) {
	if err := c.store.Save(ctx, u); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID).Msg("session persist failed")
	}
}

// commitSession installs u as the session user, persists it and moves to the
// dashboard, unless a logout happened since gen was read.
func (c *Coordinator) commitSession(ctx context.Context, gen uint64, u domain.SessionUser, notice string) bool {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()
	if c.sessionGen.Load() != gen {
		return false
	}
	c.persist(ctx, u)
	c.mu.Lock()
	c.state.User = &u
	c.state.View = ViewDashboard
	c.state.AuthDraft = AuthDraft{}
	c.state.Notice = &Notice{Kind: NoticeSuccess, Text: notice}
	c.mu.Unlock()
	return true
}

func (c *Coordinator) clearStore(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("session clear failed")
	}
}

// begin admits one mutating intent at a time.
func (c *Coordinator) begin() error {
	c.touch()
	if !c.inflight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (c *Coordinator) end() {
	c.inflight.Store(false)
}

func (c *Coordinator) touch() {
	c.lastUsed.Store(time.Now().UnixNano())
}

func (c *Coordinator) idleSince() time.Time {
	return time.Unix(0, c.lastUsed.Load())
}

func (c *Coordinator) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Coordinator) notify(kind NoticeKind, text string) {
	c.mu.Lock()
	c.state.Notice = &Notice{Kind: kind, Text: text}
	c.mu.Unlock()
}

// fail records err as the user-visible notice and returns it unchanged.
func (c *Coordinator) fail(err error) error {
	c.notify(NoticeError, UserMessage(err))
	return err
}

// UserMessage is the text shown to the user for err.
func UserMessage(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.Is(err, ErrPurchaseRolledBack):
		return "Transaction failed. Nothing was charged."
	case errors.Is(err, ErrPurchaseInconsistent):
		return "Transaction failed after your order was recorded. Please contact support."
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrForbiddenRole), errors.Is(err, ErrBusy),
		errors.Is(err, ErrMissingIdentity), errors.Is(err, ErrSignedOut), errors.Is(err, ErrUnknownAuthMode),
		errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrEmailTaken):
		return err.Error()
	}
	return "Something went wrong: " + err.Error()
}
