package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered customer account.
type User struct {
	ID                  string     `json:"id" gorm:"type:char(36);primaryKey"`
	Email               string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash        string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Name                string     `json:"name,omitempty" gorm:"size:255"`
	ResetTokenHash      *string    `json:"-" gorm:"size:64;index"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Public returns the client-safe view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}

// HasPendingReset reports whether a reset token is stored and still valid at now.
func (u *User) HasPendingReset(now time.Time) bool {
	if u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil {
		return false
	}
	return !now.After(*u.ResetTokenExpiresAt)
}

// PublicUser is the only user shape returned by the API.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// PendingReset is a reset token digest together with its absolute expiry.
type PendingReset struct {
	TokenHash string
	ExpiresAt time.Time
}

// NormalizeEmail canonicalizes an address for lookups and uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
