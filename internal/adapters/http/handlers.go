package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/identity"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the validator installed on the echo instance
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger.WithComponent("auth_handler"),
	}
}

// Register handles sign-up
func (h *AuthHandler) Register(c echo.Context) error {
	var req ports.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Register(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Registration failed", "error", err.Error(), "email", req.Email)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, response)
}

// Login handles user login
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{"email": req.Email})
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	return c.JSON(http.StatusOK, response)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	response, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		h.logger.Warnw("Token refresh failed", "error", err.Error())
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	return c.JSON(http.StatusOK, response)
}

// Logout revokes every refresh token of the caller
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := identity.UserID(ctx)
	if err != nil {
		return toHTTPError(err)
	}

	if err := h.authService.Logout(ctx, userID); err != nil {
		h.logger.Errorw("Logout failed", "error", err.Error(), "user_id", userID.String())
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed")
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// Utility functions and helper types

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid id")
	}
	return id, nil
}

// StatusFor maps domain errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrUnauthenticated), errors.Is(err, entities.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, entities.ErrTodoNotFound),
		errors.Is(err, entities.ErrCategoryNotFound),
		errors.Is(err, entities.ErrProfileNotFound),
		errors.Is(err, entities.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrValidation),
		errors.Is(err, entities.ErrEmptyTitle),
		errors.Is(err, entities.ErrInvalidUrgency),
		errors.Is(err, entities.ErrInvalidLocation):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrProfileExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// toHTTPError keeps the cause as Internal so the error handler can log it
func toHTTPError(err error) error {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	return echo.NewHTTPError(code, msg).SetInternal(err)
}

// Request/Response types
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type SeedResponse struct {
	Created bool `json:"created"`
}
