package models

import (
	"time"
)

// Account roles. SuperAdmin outranks Admin for administrative endpoints;
// Editor is a content role with no extra authentication privileges.
const (
	RoleCustomer   = "customer"
	RoleEditor     = "editor"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

// Account statuses. Anything other than active blocks login and refresh.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

type Account struct {
	ID           string
	Email        string // stored lowercased; uniqueness is case-insensitive
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	Status       string

	EmailVerified     bool
	VerifyToken       *string
	VerifyTokenExpiry *time.Time
	ResetToken        *string
	ResetTokenExpiry  *time.Time

	// Digest of the single currently valid refresh token. Nil means no
	// active session.
	RefreshTokenHash *string

	TOTPSecret  []byte // AES-256-GCM encrypted, nil unless enrolled
	TOTPNonce   []byte
	TOTPEnabled bool

	LastLoginAt *time.Time
	LastLoginIP *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasActiveSession reports whether a refresh token is currently redeemable.
func (a *Account) HasActiveSession() bool {
	return a.RefreshTokenHash != nil && *a.RefreshTokenHash != ""
}

// Session describes the single active session, if any, for introspection.
type Session struct {
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	LastLoginIP *string    `json:"last_login_ip,omitempty"`
}

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleEditor, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}
