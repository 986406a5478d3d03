package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "tanrid/internal/errors"
)

// SessionTokenExpiry is the lifetime of a bearer token.
const SessionTokenExpiry = time.Hour

// ErrInvalidToken is returned when a bearer token fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims represents JWT claims. Subject holds the user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// JWTService handles bearer token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
// An empty secret is accepted; Issue and Verify then fail with ErrSigningSecretMissing.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying tokens.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// Configured reports whether a signing secret is present.
func (s *JWTService) Configured() bool {
	return len(s.secret) > 0
}

// Issue signs a token for the user that expires after SessionTokenExpiry.
func (s *JWTService) Issue(userID, email string) (string, error) {
	if !s.Configured() {
		return "", apperrors.ErrSigningSecretMissing
	}

	now := s.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns its claims.
// Only HS256 is accepted and an exp claim is required.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	if !s.Configured() {
		return nil, apperrors.ErrSigningSecretMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
