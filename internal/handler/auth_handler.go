package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"tanrid/internal/errors"
	"tanrid/internal/middleware"
	"tanrid/internal/model"
	"tanrid/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"password123"`
	Name     string `json:"name,omitempty" example:"Alice"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"password123"`
}

// ForgotPasswordRequest represents a password reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password" example:"newpass123"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// MessageResponse carries a human-readable status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, errors.NewValidationError("body", "json"))
	}

	result, err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusCreated, AuthResponse{User: result.User, Token: result.Token})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, errors.NewValidationError("body", "json"))
	}

	result, err := h.authService.Login(c.Request().Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{User: result.User, Token: result.Token})
}

// ForgotPassword godoc
// @Summary Request a password reset email
// @Description Always answers with the same message whether or not the email is registered.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/forgot [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, errors.NewValidationError("body", "json"))
	}

	msg, err := h.authService.ForgotPassword(c.Request().Context(), service.ForgotPasswordInput{Email: req.Email})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// ResetPassword godoc
// @Summary Reset password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/reset [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, errors.NewValidationError("body", "json"))
	}

	msg, err := h.authService.ResetPassword(c.Request().Context(), service.ResetPasswordInput{
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

// Me godoc
// @Summary Current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PublicUser
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	claims, ok := middleware.IdentityFrom(c)
	if !ok {
		return h.fail(c, errors.ErrUnauthenticated)
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), claims.UserID())
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, user)
}

// fail maps err to a client response and logs server-side causes.
func (h *AuthHandler) fail(c echo.Context, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.IsServerError() {
		h.logger.Error("request failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
