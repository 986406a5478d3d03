package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	apperrors "tanrid/internal/errors"
	"tanrid/internal/model"
	"tanrid/internal/repository"
)

const (
	// ResetTokenExpiry is how long a password reset token stays valid.
	ResetTokenExpiry = 15 * time.Minute

	resetTokenBytes = 32
)

// ResetTokenService issues and redeems one-time password reset tokens.
// Only the SHA-256 digest of a token is persisted.
type ResetTokenService struct {
	users repository.UserRepository
	now   func() time.Time
}

// NewResetTokenService creates a reset token service over the user store.
func NewResetTokenService(users repository.UserRepository) *ResetTokenService {
	return &ResetTokenService{users: users, now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (s *ResetTokenService) WithClock(now func() time.Time) *ResetTokenService {
	s.now = now
	return s
}

// Issue stores a fresh token for the user, replacing any pending one, and returns the raw value.
func (s *ResetTokenService) Issue(ctx context.Context, user *model.User) (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	raw := hex.EncodeToString(buf)

	_, err := s.users.Update(ctx, user.ID, repository.UserUpdate{
		ResetToken: &model.PendingReset{
			TokenHash: HashResetToken(raw),
			ExpiresAt: s.now().Add(ResetTokenExpiry),
		},
	})
	if err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return raw, nil
}

// Consume resolves a raw token to its user ID. It does not clear the token;
// the caller clears it in the same update that changes the password.
func (s *ResetTokenService) Consume(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", apperrors.ErrInvalidOrExpiredToken
	}

	user, err := s.users.FindByResetToken(ctx, HashResetToken(raw))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return "", apperrors.ErrInvalidOrExpiredToken
		}
		return "", fmt.Errorf("lookup reset token: %w", err)
	}
	if !user.HasPendingReset(s.now()) {
		return "", apperrors.ErrInvalidOrExpiredToken
	}
	return user.ID, nil
}

// HashResetToken returns the hex SHA-256 digest under which a token is stored.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
