package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is fixed to completed: there is no cancellation or refund flow.
type OrderStatus string

const OrderCompleted OrderStatus = "completed"

// Order is the immutable record of one completed purchase of a listing.
type Order struct {
	ID         string      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID  string      `gorm:"column:listing_id;type:uuid;not null;index" json:"listingId"`
	BuyerID    string      `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyerId"`
	SellerID   string      `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	Amount     int         `gorm:"column:amount;not null" json:"amount"`
	TotalPrice float64     `gorm:"column:total_price;type:decimal(18,2);not null" json:"totalPrice"`
	Status     OrderStatus `gorm:"column:status;type:varchar(20);not null;default:'completed'" json:"status"`
	CreatedAt  time.Time   `gorm:"column:created_at" json:"createdAt"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// NewOrder freezes quantity, seller and total of listing l for buyer.
func NewOrder(l Listing, buyerID string, now time.Time) Order {
	return Order{
		ID:         uuid.New().String(),
		ListingID:  l.ID,
		BuyerID:    buyerID,
		SellerID:   l.SellerID,
		Amount:     l.Amount,
		TotalPrice: float64(l.Amount) * l.PricePerUnit,
		Status:     OrderCompleted,
		CreatedAt:  now,
	}
}
