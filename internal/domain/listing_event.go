package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ListingEventCreated = "CREATED"
	ListingEventSold    = "SOLD"
)

// ListingEvent is an append-only audit entry for a listing mutation.
type ListingEvent struct {
	EventID   string         `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID string         `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData datatypes.JSON `gorm:"column:event_data;not null" json:"event_data"`
	ActorID   *string        `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (ListingEvent) TableName() string {
	return "listing_events"
}

func (le *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == "" {
		le.EventID = uuid.New().String()
	}
	return nil
}
