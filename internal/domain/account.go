package domain

import "time"

// Account holds the credentials of the relational backend's built-in auth.
// Hosted backends keep credentials on their side and never use this table.
type Account struct {
	ID           string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (Account) TableName() string {
	return "accounts"
}
