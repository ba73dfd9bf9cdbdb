package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"carbonmarket/internal/domain"

	"github.com/google/uuid"
)

// memBackend is an in-memory Backend with failure injection.
type memBackend struct {
	mu       sync.Mutex
	accounts map[string]string // email -> password
	ids      map[string]string // email -> id
	profiles map[string]domain.SessionUser
	listings []domain.Listing
	orders   []domain.Order

	failSignIn     error
	failProfile    error
	failList       error
	failMarkSold   error
	failDelete     error
	markSoldCalls  int
	deleteCalls    int
	insertOrderHit int
	block          chan struct{}
}

func newMemBackend() *memBackend {
	return &memBackend{
		accounts: map[string]string{},
		ids:      map[string]string{},
		profiles: map[string]domain.SessionUser{},
	}
}

func (b *memBackend) SignUp(_ context.Context, email, password string) (*Identity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[email]; ok {
		return nil, ErrEmailTaken
	}
	id := uuid.New().String()
	b.accounts[email] = password
	b.ids[email] = id
	return &Identity{ID: id, Email: email}, nil
}

func (b *memBackend) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSignIn != nil {
		return nil, b.failSignIn
	}
	if pw, ok := b.accounts[email]; !ok || pw != password {
		return nil, ErrInvalidCredentials
	}
	return &Identity{ID: b.ids[email], Email: email}, nil
}

func (b *memBackend) GetProfile(_ context.Context, id string) (*domain.SessionUser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (b *memBackend) InsertProfile(_ context.Context, u domain.SessionUser) (*domain.SessionUser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failProfile; err != nil {
		b.failProfile = nil
		return nil, err
	}
	b.profiles[u.ID] = u
	return &u, nil
}

func (b *memBackend) UpdateProfile(_ context.Context, id string, patch domain.ProfilePatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.profiles[id]
	if !ok {
		return ErrNotFound
	}
	b.profiles[id] = patch.Apply(p)
	return nil
}

func (b *memBackend) ListListings(context.Context) ([]domain.Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failList != nil {
		return nil, b.failList
	}
	return append([]domain.Listing(nil), b.listings...), nil
}

func (b *memBackend) ListOrders(context.Context) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Order(nil), b.orders...), nil
}

func (b *memBackend) InsertListing(_ context.Context, l domain.Listing) (*domain.Listing, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	b.listings = append(b.listings, l)
	return &l, nil
}

func (b *memBackend) InsertOrder(_ context.Context, o domain.Order) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insertOrderHit++
	b.orders = append(b.orders, o)
	return &o, nil
}

func (b *memBackend) MarkListingSold(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markSoldCalls++
	if b.failMarkSold != nil {
		return b.failMarkSold
	}
	for i := range b.listings {
		if b.listings[i].ID == id {
			if !b.listings[i].Available() {
				return ErrListingUnavailable
			}
			b.listings[i].Status = domain.ListingSold
			return nil
		}
	}
	return ErrNotFound
}

func (b *memBackend) DeleteOrder(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteCalls++
	if b.failDelete != nil {
		return b.failDelete
	}
	for i := range b.orders {
		if b.orders[i].ID == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return nil
		}
	}
	return nil
}

func (b *memBackend) listing(id string) domain.Listing {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.listings {
		if l.ID == id {
			return l
		}
	}
	return domain.Listing{}
}

func (b *memBackend) orderCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

// txBackend adds an all-or-nothing CommitPurchase on top of memBackend.
type txBackend struct {
	*memBackend
	commits int
}

func (b *txBackend) CommitPurchase(ctx context.Context, o domain.Order) (*domain.Order, error) {
	b.commits++
	if err := b.MarkListingSold(ctx, o.ListingID); err != nil {
		return nil, err
	}
	return b.InsertOrder(ctx, o)
}

// regBackend registers account and profile together, dropping the account
// when the profile insert fails.
type regBackend struct {
	*memBackend
	registrations int
}

func (b *regBackend) SignUpWithProfile(ctx context.Context, email, password string, profile domain.SessionUser) (*domain.SessionUser, error) {
	b.registrations++
	ident, err := b.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	profile.ID = ident.ID
	created, err := b.InsertProfile(ctx, profile)
	if err != nil {
		b.mu.Lock()
		delete(b.accounts, email)
		delete(b.ids, email)
		b.mu.Unlock()
		return nil, err
	}
	return created, nil
}

// memStore mimics a durable blob store by round-tripping through JSON.
type memStore struct {
	mu       sync.Mutex
	blob     []byte
	failSave error
}

func (s *memStore) Load(context.Context) (*domain.SessionUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob == nil {
		return nil, nil
	}
	var u domain.SessionUser
	if err := json.Unmarshal(s.blob, &u); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &u, nil
}

func (s *memStore) Save(_ context.Context, u domain.SessionUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	s.blob = b
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = nil
	return nil
}

type sentMail struct {
	kind, to string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) record(kind, to string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{kind: kind, to: to})
	return nil
}

func (n *recordingNotifier) SendWelcome(_ context.Context, to, _ string) error {
	return n.record("welcome", to)
}

func (n *recordingNotifier) SendAccountUpdated(_ context.Context, to, _ string) error {
	return n.record("account_updated", to)
}

func (n *recordingNotifier) SendPurchaseReceipt(_ context.Context, to, _ string, _ domain.Order) error {
	return n.record("purchase_receipt", to)
}
