package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectType is the category of the project behind a credit listing.
type ProjectType string

const (
	ProjectReforestation    ProjectType = "Reforestation"
	ProjectRenewableEnergy  ProjectType = "Renewable Energy"
	ProjectMethaneCapture   ProjectType = "Methane Capture"
	ProjectEnergyEfficiency ProjectType = "Energy Efficiency"
)

// ProjectTypes lists the accepted project categories in display order.
var ProjectTypes = []ProjectType{
	ProjectReforestation,
	ProjectRenewableEnergy,
	ProjectMethaneCapture,
	ProjectEnergyEfficiency,
}

// Valid reports whether t is one of ProjectTypes.
func (t ProjectType) Valid() bool {
	for _, p := range ProjectTypes {
		if p == t {
			return true
		}
	}
	return false
}

// ListingStatus moves one way: available -> sold.
type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingSold      ListingStatus = "sold"
)

// Listing is a seller's offer of a fixed quantity of credits at a fixed unit price.
type Listing struct {
	ID           string        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SellerID     string        `gorm:"column:seller_id;type:uuid;not null;index" json:"sellerId"`
	SellerName   string        `gorm:"column:seller_name;not null" json:"sellerName"`
	Amount       int           `gorm:"column:amount;not null" json:"amount"`
	PricePerUnit float64       `gorm:"column:price_per_unit;type:decimal(18,2);not null" json:"pricePerUnit"`
	ProjectType  ProjectType   `gorm:"column:project_type;not null" json:"projectType"`
	Location     string        `gorm:"column:location;not null" json:"location"`
	Description  string        `gorm:"column:description;not null" json:"description"`
	ImageURL     *string       `gorm:"column:image_url" json:"imageUrl,omitempty"`
	VideoURL     *string       `gorm:"column:video_url" json:"videoUrl,omitempty"`
	Status       ListingStatus `gorm:"column:status;type:varchar(20);not null;default:'available'" json:"status"`
	CreatedAt    time.Time     `gorm:"column:created_at" json:"createdAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// Available reports whether the listing can still be purchased.
func (l *Listing) Available() bool {
	return l.Status == ListingAvailable
}
