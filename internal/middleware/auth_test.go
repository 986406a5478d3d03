package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanrid/internal/auth"
)

func protectedServer(jwtService *auth.JWTService) *echo.Echo {
	e := echo.New()
	e.GET("/auth/me", func(c echo.Context) error {
		claims, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, echo.Map{"sub": claims.UserID(), "email": claims.Email})
	}, RequireAuth(jwtService))
	return e
}

func TestRequireAuth(t *testing.T) {
	jwtService := auth.NewJWTService("s3cret")
	valid, err := jwtService.Issue("user-1", "a@b.com")
	require.NoError(t, err)

	expired, err := auth.NewJWTService("s3cret").
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Issue("user-1", "a@b.com")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, `"sub":"user-1"`},
		{"missing header", "", http.StatusUnauthorized, `"code":"UNAUTHENTICATED"`},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, `"code":"UNAUTHENTICATED"`},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized, `"code":"UNAUTHENTICATED"`},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, `"code":"UNAUTHENTICATED"`},
	}

	e := protectedServer(jwtService)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestRequireAuth_MissingSecret(t *testing.T) {
	e := protectedServer(auth.NewJWTService(""))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer anything")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"CONFIGURATION_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "secret")
}
