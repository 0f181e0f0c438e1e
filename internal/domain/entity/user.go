package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"gorm.io/gorm"
)

// User represents a customer or staff account
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Email        string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password     string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:50;not null;default:'customer'" json:"role"`
	IsSuperAdmin bool           `gorm:"default:false" json:"is_super_admin"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// Roles lists the token roles for this account.
func (u *User) Roles() []string {
	roles := []string{u.Role}
	if u.IsSuperAdmin {
		roles = append(roles, enum.RoleSuperAdmin)
	}
	return roles
}

// IsAdmin reports whether the account is staff.
func (u *User) IsAdmin() bool {
	return u.Role == enum.RoleAdmin || u.IsSuperAdmin
}
