package repository

import (
	"context"
	"errors"
	"time"

	"tanrid/internal/model"
)

// UserRepository defines credential persistence operations.
// Implementations return apperrors.ErrUserNotFound for missing records and
// apperrors.ErrEmailAlreadyRegistered when Create would duplicate a normalized email.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByResetToken looks a user up by reset token digest. Expiry is not checked here.
	FindByResetToken(ctx context.Context, tokenHash string) (*model.User, error)
	Create(ctx context.Context, user *model.User) (*model.User, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*model.User, error)
}

// ErrResetTokenChanged is returned by Update when the stored reset token digest
// no longer equals UserUpdate.ExpectResetTokenHash.
var ErrResetTokenChanged = errors.New("reset token changed")

// UserUpdate lists the fields an Update changes. Nil fields are left untouched;
// ID, Email and CreatedAt are never changed.
type UserUpdate struct {
	Name            *string
	PasswordHash    *string
	ResetToken      *model.PendingReset
	ClearResetToken bool
	// ExpectResetTokenHash, when set, makes the update conditional on the stored digest.
	ExpectResetTokenHash string
}

// matchesResetToken reports whether a stored digest satisfies the expectation.
func (upd UserUpdate) matchesResetToken(stored *string) bool {
	if upd.ExpectResetTokenHash == "" {
		return true
	}
	return stored != nil && *stored == upd.ExpectResetTokenHash
}

// apply copies the update onto u.
func (upd UserUpdate) apply(u *model.User, now time.Time) {
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.ClearResetToken {
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
	}
	if upd.ResetToken != nil {
		hash := upd.ResetToken.TokenHash
		exp := upd.ResetToken.ExpiresAt
		u.ResetTokenHash = &hash
		u.ResetTokenExpiresAt = &exp
	}
	u.UpdatedAt = now
}

// columns returns the update as a column map for relational stores.
func (upd UserUpdate) columns() map[string]any {
	cols := map[string]any{}
	if upd.Name != nil {
		cols["name"] = *upd.Name
	}
	if upd.PasswordHash != nil {
		cols["password_hash"] = *upd.PasswordHash
	}
	if upd.ClearResetToken {
		cols["reset_token_hash"] = nil
		cols["reset_token_expires_at"] = nil
	}
	if upd.ResetToken != nil {
		cols["reset_token_hash"] = upd.ResetToken.TokenHash
		cols["reset_token_expires_at"] = upd.ResetToken.ExpiresAt
	}
	return cols
}
