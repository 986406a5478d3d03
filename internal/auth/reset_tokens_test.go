package auth

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tanrid/internal/errors"
	"tanrid/internal/model"
	"tanrid/internal/repository"
)

func TestResetTokenService_IssueAndConsume(t *testing.T) {
	ctx := context.Background()
	users := repository.NewJSONUserRepository(afero.NewMemMapFs(), "/data")
	user, err := users.Create(ctx, &model.User{Email: "a@b.com", PasswordHash: "h"})
	require.NoError(t, err)

	start := time.Now()
	svc := NewResetTokenService(users).WithClock(fixedClock(start))

	raw, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	assert.Len(t, raw, 64)

	stored, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenHash)
	assert.Equal(t, HashResetToken(raw), *stored.ResetTokenHash)
	assert.NotEqual(t, raw, *stored.ResetTokenHash)

	userID, err := svc.Consume(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	svc.WithClock(fixedClock(start.Add(16 * time.Minute)))
	_, err = svc.Consume(ctx, raw)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
}

func TestResetTokenService_ReissueReplacesPendingToken(t *testing.T) {
	ctx := context.Background()
	users := repository.NewJSONUserRepository(afero.NewMemMapFs(), "/data")
	user, err := users.Create(ctx, &model.User{Email: "a@b.com", PasswordHash: "h"})
	require.NoError(t, err)
	svc := NewResetTokenService(users)

	first, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = svc.Consume(ctx, first)
	assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)

	userID, err := svc.Consume(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestResetTokenService_UnknownToken(t *testing.T) {
	svc := NewResetTokenService(repository.NewJSONUserRepository(afero.NewMemMapFs(), "/data"))

	for _, raw := range []string{"", "deadbeef"} {
		_, err := svc.Consume(context.Background(), raw)
		assert.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredToken)
	}
}
