package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tanrid/internal/auth"
	apperrors "tanrid/internal/errors"
	"tanrid/internal/metrics"
	"tanrid/internal/model"
	"tanrid/internal/notify"
	"tanrid/internal/repository"
)

const (
	// ForgotPasswordMessage is returned whether or not the email is registered.
	ForgotPasswordMessage = "If that email exists, reset instructions were sent."
	// PasswordUpdatedMessage is returned after a successful reset.
	PasswordUpdatedMessage = "Password updated"
)

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
	Name     string `json:"name,omitempty" validate:"max=255"`
}

// LoginInput is the payload for Login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

// ForgotPasswordInput is the payload for ForgotPassword.
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordInput is the payload for ResetPassword.
type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	ForgotPassword(ctx context.Context, in ForgotPasswordInput) (string, error)
	ResetPassword(ctx context.Context, in ResetPasswordInput) (string, error)
	CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error)
}

type authService struct {
	users       repository.UserRepository
	jwtService  *auth.JWTService
	resetTokens *auth.ResetTokenService
	hasher      auth.PasswordHasher
	notifier    notify.Notifier
	logger      *zap.Logger
	validate    *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	jwtService *auth.JWTService,
	resetTokens *auth.ResetTokenService,
	hasher auth.PasswordHasher,
	notifier notify.Notifier,
	logger *zap.Logger,
) AuthService {
	return &authService{
		users:       users,
		jwtService:  jwtService,
		resetTokens: resetTokens,
		hasher:      hasher,
		notifier:    notifier,
		logger:      logger,
		validate:    NewValidator(),
	}
}

// Register creates a new user and signs them in.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return nil, s.fail("register", err)
	}
	email := in.Email
	if !s.jwtService.Configured() {
		return nil, s.fail("register", apperrors.ErrSigningSecretMissing)
	}

	// Check if user already exists
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, s.fail("register", apperrors.ErrEmailAlreadyRegistered)
	}
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, s.fail("register", fmt.Errorf("check user existence: %w", err))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.fail("register", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyRegistered) {
			return nil, s.fail("register", err)
		}
		return nil, s.fail("register", fmt.Errorf("create user: %w", err))
	}

	if err := s.notifier.SendWelcome(ctx, user.Email); err != nil {
		s.logger.Warn("welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	result, err := s.session(user)
	if err != nil {
		return nil, s.fail("register", err)
	}
	metrics.AuthEvents.WithLabelValues("register", "success").Inc()
	return result, nil
}

// Login authenticates a user by email and password.
func (s *authService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return nil, s.fail("login", err)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, s.fail("login", fmt.Errorf("find user: %w", err))
		}
		// Burn the same bcrypt work as a real comparison.
		_ = s.hasher.Compare(s.dummyPasswordHash(), in.Password)
		return nil, s.fail("login", invalidCredentials())
	}

	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, s.fail("login", invalidCredentials())
		}
		return nil, s.fail("login", err)
	}

	result, err := s.session(user)
	if err != nil {
		return nil, s.fail("login", err)
	}
	metrics.AuthEvents.WithLabelValues("login", "success").Inc()
	return result, nil
}

// ForgotPassword issues a reset token when the email is registered.
// The response never reveals whether it was.
func (s *authService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) (string, error) {
	in.Email = model.NormalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return "", s.fail("forgot", err)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			metrics.AuthEvents.WithLabelValues("forgot", "success").Inc()
			return ForgotPasswordMessage, nil
		}
		return "", s.fail("forgot", fmt.Errorf("find user: %w", err))
	}

	raw, err := s.resetTokens.Issue(ctx, user)
	if err != nil {
		return "", s.fail("forgot", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, raw); err != nil {
		s.logger.Warn("password reset email failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	metrics.AuthEvents.WithLabelValues("forgot", "success").Inc()
	return ForgotPasswordMessage, nil
}

// ResetPassword redeems a reset token and replaces the password.
// Bearer tokens issued before the reset stay valid until they expire.
func (s *authService) ResetPassword(ctx context.Context, in ResetPasswordInput) (string, error) {
	if err := s.check(in); err != nil {
		return "", s.fail("reset", err)
	}

	userID, err := s.resetTokens.Consume(ctx, in.Token)
	if err != nil {
		return "", s.fail("reset", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", s.fail("reset", err)
	}

	// The guard makes a token redeemed by a concurrent reset fail here.
	_, err = s.users.Update(ctx, userID, repository.UserUpdate{
		PasswordHash:         &hash,
		ClearResetToken:      true,
		ExpectResetTokenHash: auth.HashResetToken(in.Token),
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) || errors.Is(err, repository.ErrResetTokenChanged) {
			return "", s.fail("reset", apperrors.ErrInvalidOrExpiredToken)
		}
		return "", s.fail("reset", fmt.Errorf("update password: %w", err))
	}

	metrics.AuthEvents.WithLabelValues("reset", "success").Inc()
	return PasswordUpdatedMessage, nil
}

// CurrentUser loads the public profile of an authenticated user.
func (s *authService) CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.fail("me", err)
	}
	public := user.Public()
	return &public, nil
}

// invalidCredentials is the single rejection for unknown emails and wrong passwords.
func invalidCredentials() error {
	return apperrors.ErrInvalidCredentials
}

func (s *authService) session(user *model.User) (*AuthResult, error) {
	token, err := s.jwtService.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}

func (s *authService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("tanrid-dummy-password")
		if err != nil {
			s.logger.Error("dummy password hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// fail records the outcome and returns err unchanged.
func (s *authService) fail(operation string, err error) error {
	outcome := "rejected"
	if apperrors.MapErrorToHTTP(err).IsServerError() {
		outcome = "error"
	}
	metrics.AuthEvents.WithLabelValues(operation, outcome).Inc()
	return err
}
