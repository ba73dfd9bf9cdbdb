package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"carbonmarket/internal/application/coordinator"
	"carbonmarket/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const bcryptCost = 10

// Store is the relational marketplace backend. It keeps its own credentials
// table and can commit a purchase in a single transaction.
type Store struct {
	DB *gorm.DB
}

var (
	_ coordinator.Backend           = (*Store)(nil)
	_ coordinator.PurchaseCommitter = (*Store)(nil)
	_ coordinator.Registrar         = (*Store)(nil)
)

func (s *Store) SignUp(ctx context.Context, email, password string) (*coordinator.Identity, error) {
	acc, err := s.createAccount(s.DB.WithContext(ctx), email, password)
	if err != nil {
		return nil, err
	}
	return &coordinator.Identity{ID: acc.ID, Email: acc.Email}, nil
}

// SignUpWithProfile creates the account and its profile in one transaction,
// so a failed profile insert leaves no account behind.
func (s *Store) SignUpWithProfile(ctx context.Context, email, password string, profile domain.SessionUser) (*domain.SessionUser, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := s.createAccount(tx, email, password)
		if err != nil {
			return err
		}
		profile.ID = acc.ID
		profile.Email = acc.Email
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) createAccount(tx *gorm.DB, email, password string) (*domain.Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	var existing domain.Account
	if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, coordinator.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	acc := domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}
	// a concurrent sign-up can pass the lookup above; the unique index decides
	if err := tx.Create(&acc).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, coordinator.ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &acc, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*coordinator.Identity, error) {
	var acc domain.Account
	err := s.DB.WithContext(ctx).Where("email = ?", strings.TrimSpace(strings.ToLower(email))).First(&acc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coordinator.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, coordinator.ErrInvalidCredentials
	}
	return &coordinator.Identity{ID: acc.ID, Email: acc.Email}, nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*domain.SessionUser, error) {
	var u domain.SessionUser
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coordinator.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) InsertProfile(ctx context.Context, u domain.SessionUser) (*domain.SessionUser, error) {
	if err := s.DB.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, patch domain.ProfilePatch) error {
	updates := map[string]interface{}{}
	if patch.CompanyName != nil {
		updates["company_name"] = *patch.CompanyName
	}
	if patch.OwnerName != nil {
		updates["owner_name"] = *patch.OwnerName
	}
	if patch.Address != nil {
		updates["address"] = *patch.Address
	}
	if len(updates) == 0 {
		return nil
	}
	res := s.DB.WithContext(ctx).Model(&domain.SessionUser{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return coordinator.ErrNotFound
	}
	return nil
}

func (s *Store) ListListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch listings: %w", err)
	}
	return listings, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch orders: %w", err)
	}
	return orders, nil
}

// InsertListing creates the listing and its CREATED event in one transaction.
func (s *Store) InsertListing(ctx context.Context, l domain.Listing) (*domain.Listing, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&l).Error; err != nil {
			return fmt.Errorf("Failed to create listing: %w", err)
		}
		return recordEvent(tx, l.ID, domain.ListingEventCreated, l.SellerID, map[string]interface{}{
			"amount":         l.Amount,
			"price_per_unit": l.PricePerUnit,
			"project_type":   l.ProjectType,
		})
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) InsertOrder(ctx context.Context, o domain.Order) (*domain.Order, error) {
	if err := s.DB.WithContext(ctx).Create(&o).Error; err != nil {
		return nil, fmt.Errorf("Failed to create order: %w", err)
	}
	return &o, nil
}

// MarkListingSold flips an available listing to sold. A listing that exists but is
// already sold yields coordinator.ErrListingUnavailable.
func (s *Store) MarkListingSold(ctx context.Context, listingID string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return markSold(tx, listingID, "", "")
	})
}

func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	return s.DB.WithContext(ctx).Where("id = ?", orderID).Delete(&domain.Order{}).Error
}

// CommitPurchase flips the listing to sold and inserts the order atomically.
// Of two concurrent buyers exactly one wins; the other gets ErrListingUnavailable.
func (s *Store) CommitPurchase(ctx context.Context, o domain.Order) (*domain.Order, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := markSold(tx, o.ListingID, o.BuyerID, o.ID); err != nil {
			return err
		}
		if err := tx.Create(&o).Error; err != nil {
			return fmt.Errorf("Failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListingEvents returns the audit trail of a listing, oldest first.
func (s *Store) ListingEvents(ctx context.Context, listingID string) ([]domain.ListingEvent, error) {
	var events []domain.ListingEvent
	err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func markSold(tx *gorm.DB, listingID, buyerID, orderID string) error {
	res := tx.Model(&domain.Listing{}).
		Where("id = ? AND status = ?", listingID, domain.ListingAvailable).
		Update("status", domain.ListingSold)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&domain.Listing{}).Where("id = ?", listingID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return coordinator.ErrNotFound
		}
		return coordinator.ErrListingUnavailable
	}
	data := map[string]interface{}{}
	if orderID != "" {
		data["order_id"] = orderID
	}
	return recordEvent(tx, listingID, domain.ListingEventSold, buyerID, data)
}

func recordEvent(tx *gorm.DB, listingID, eventType, actorID string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	ev := domain.ListingEvent{
		ListingID: listingID,
		EventType: eventType,
		EventData: datatypes.JSON(raw),
		CreatedAt: time.Now(),
	}
	if actorID != "" {
		ev.ActorID = &actorID
	}
	if err := tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("Failed to create listing event: %w", err)
	}
	return nil
}
