package middleware

import (
	"errors"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"tanrid/internal/auth"
	apperrors "tanrid/internal/errors"
)

// IdentityKey is the echo context key holding the verified *auth.Claims.
const IdentityKey = "identity"

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>" header.
// The email claim is trusted as issued; the user record is not re-read.
func RequireAuth(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  IdentityKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.Verify(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, apperrors.ErrSigningSecretMissing) {
				return errorResponse(apperrors.ErrSigningSecretMissing)
			}
			return errorResponse(apperrors.ErrUnauthenticated)
		},
	})
}

// IdentityFrom returns the claims attached by RequireAuth.
func IdentityFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(IdentityKey).(*auth.Claims)
	return claims, ok && claims != nil
}

func errorResponse(err error) *echo.HTTPError {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
