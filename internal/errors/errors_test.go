package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"conflict", ErrEmailAlreadyRegistered, http.StatusConflict, "EMAIL_ALREADY_REGISTERED"},
		{"wrapped conflict", fmt.Errorf("create user: %w", ErrEmailAlreadyRegistered), http.StatusConflict, "EMAIL_ALREADY_REGISTERED"},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"invalid reset token", ErrInvalidOrExpiredToken, http.StatusBadRequest, "INVALID_OR_EXPIRED_TOKEN"},
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{"not found", ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"missing secret", ErrSigningSecretMissing, http.StatusInternalServerError, "CONFIGURATION_ERROR"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"storage fault", errors.New("open users.json: permission denied"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapErrorToHTTP_DoesNotLeakInternalDetail(t *testing.T) {
	httpErr := MapErrorToHTTP(errors.New("dial tcp 10.0.0.3:5432: connection refused"))

	assert.Equal(t, "internal server error", httpErr.Message)
	assert.True(t, httpErr.IsServerError())
}

func TestMapErrorToHTTP_ValidationFields(t *testing.T) {
	verr := &ValidationError{Fields: []FieldError{
		{Field: "email", Rule: "email"},
		{Field: "password", Rule: "min"},
	}}

	httpErr := MapErrorToHTTP(fmt.Errorf("register: %w", verr))
	resp := httpErr.ToErrorResponse()

	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Len(t, resp.Fields, 2)
	assert.Equal(t, "password", resp.Fields[1].Field)
	assert.Contains(t, verr.Error(), "email (email)")
}
