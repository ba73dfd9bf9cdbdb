package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the marketplace side a user signed up for.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// SessionUser is the profile record of an authenticated actor. The same shape is
// persisted remotely (profiles table) and locally as the session blob.
type SessionUser struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"column:email;not null" json:"email"`
	Role        Role      `gorm:"column:role;type:varchar(10);not null" json:"role"`
	CompanyName string    `gorm:"column:company_name;not null" json:"companyName"`
	OwnerName   string    `gorm:"column:owner_name;not null" json:"ownerName"`
	Address     string    `gorm:"column:address" json:"address"`
	Phone       string    `gorm:"column:phone" json:"phone"`
	Verified    bool      `gorm:"column:is_verified;not null;default:true" json:"isVerified"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (SessionUser) TableName() string {
	return "profiles"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (u *SessionUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Valid reports whether the session user can be used as a session:
// a non-empty id and a known role.
func (u *SessionUser) Valid() bool {
	return u != nil && u.ID != "" && u.Role.Valid()
}

// ProfilePatch is the partial update accepted for a profile record.
// Nil fields are left untouched.
type ProfilePatch struct {
	CompanyName *string `json:"companyName"`
	OwnerName   *string `json:"ownerName"`
	Address     *string `json:"address"`
}

// Apply returns a copy of u with the patch applied. Identity and role are never touched.
func (p ProfilePatch) Apply(u SessionUser) SessionUser {
	if p.CompanyName != nil {
		u.CompanyName = *p.CompanyName
	}
	if p.OwnerName != nil {
		u.OwnerName = *p.OwnerName
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	return u
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.CompanyName == nil && p.OwnerName == nil && p.Address == nil
}
