package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrEmailAlreadyRegistered is returned when the normalized email already belongs to a user.
	ErrEmailAlreadyRegistered = errors.New("Email already in use")
	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrInvalidOrExpiredToken is returned when a reset token is unknown, used or expired.
	ErrInvalidOrExpiredToken = errors.New("Invalid or expired token")
	// ErrUnauthenticated is returned when a protected route has no valid bearer token.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUserNotFound is returned when a user record cannot be resolved.
	ErrUserNotFound = errors.New("user not found")
	// ErrSigningSecretMissing is returned when no token signing secret is configured.
	ErrSigningSecretMissing = errors.New("token signing secret is not configured")
	// ErrRateLimited is returned when a client exceeds its request budget.
	ErrRateLimited = errors.New("too many requests")
)

// FieldError names one violated input constraint.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every field of a request that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, fmt.Sprintf("%s (%s)", f.Field, f.Rule))
	}
	return "invalid input: " + strings.Join(names, ", ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule}}}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Code   string       `json:"code"`
	Fields []FieldError `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Fields     []FieldError
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:  e.Message,
		Code:   e.Code,
		Fields: e.Fields,
	}
}

// IsServerError reports whether the mapped error is operator-facing.
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Unknown errors collapse into a generic 500 so storage details never reach clients.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		httpErr := NewHTTPError(http.StatusBadRequest, "invalid request", "VALIDATION_ERROR")
		httpErr.Fields = verr.Fields
		return httpErr
	}

	switch {
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return NewHTTPError(http.StatusConflict, ErrEmailAlreadyRegistered.Error(), "EMAIL_ALREADY_REGISTERED")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidOrExpiredToken.Error(), "INVALID_OR_EXPIRED_TOKEN")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthenticated.Error(), "UNAUTHENTICATED")
	case errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrSigningSecretMissing):
		return NewHTTPError(http.StatusInternalServerError, "server is not configured", "CONFIGURATION_ERROR")
	case errors.Is(err, ErrRateLimited):
		return NewHTTPError(http.StatusTooManyRequests, ErrRateLimited.Error(), "RATE_LIMITED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
