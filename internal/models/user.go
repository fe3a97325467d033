package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Role names stored in users.roles
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a hotel guest or staff account
type User struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	Username     string         `json:"username" db:"username"`
	PasswordHash string         `json:"-" db:"password_hash"` // Never expose in JSON
	Email        string         `json:"email" db:"email"`
	Name         string         `json:"name" db:"name"`
	Phone        NullString     `json:"phone,omitempty" db:"phone"`
	Roles        pq.StringArray `json:"roles" db:"roles"`
	Enabled      bool           `json:"enabled" db:"enabled"`
	DeletedAt    NullTime       `json:"deleted_at,omitempty" db:"deleted_at"`
	LastLoginAt  NullTime       `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the user carries the given role
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsWithdrawn reports whether the account was soft-deleted by its owner
func (u *User) IsWithdrawn() bool {
	return !u.Enabled && u.DeletedAt.Valid
}

// PurgeAt returns when a withdrawn account becomes eligible for permanent deletion
func (u *User) PurgeAt(grace time.Duration) time.Time {
	return u.DeletedAt.Time.Add(grace)
}
