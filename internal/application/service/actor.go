package service

import (
	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/enum"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

func (a Actor) hasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor may perform staff operations
func (a Actor) IsAdmin() bool {
	return a.hasRole(enum.RoleAdmin) || a.hasRole(enum.RoleSuperAdmin)
}

// IsSuperAdmin reports whether the actor may manage other admins
func (a Actor) IsSuperAdmin() bool {
	return a.hasRole(enum.RoleSuperAdmin)
}

// CanAccess reports whether the actor owns a record or is staff
func (a Actor) CanAccess(owner *uuid.UUID) bool {
	if a.IsAdmin() {
		return true
	}
	return owner != nil && a.UserID != uuid.Nil && *owner == a.UserID
}

func (a Actor) idPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
