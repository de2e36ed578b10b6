package model

import (
	"context"

	"github.com/google/uuid"
)

// UserStore looks up authoritative user records. Owned by the identity system.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
}

// User is the identity record tokens are minted from.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	Role         Role
	Status       UserStatus
	AuthProvider string
}

// Role is a coarse permission level. Ordering lives in the rbac package.
type Role string

const (
	RoleGuest     Role = "guest"
	RoleReadOnly  Role = "readonly"
	RoleUser      Role = "user"
	RoleAnalyst   Role = "analyst"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// UserStatus is the account state of a user.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// IsActive reports whether tokens may be minted for the user.
func (u User) IsActive() bool {
	return u.Status == UserStatusActive
}
