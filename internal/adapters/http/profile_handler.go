package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

// ProfileHandler serves profile search and the notification inbox
type ProfileHandler struct {
	profileService ports.ProfileService
	logger         *logger.Logger
}

func NewProfileHandler(profileService ports.ProfileService, logger *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger.WithComponent("profile_handler"),
	}
}

// SearchProfiles matches ?q= against usernames
func (h *ProfileHandler) SearchProfiles(c echo.Context) error {
	profiles, err := h.profileService.SearchProfiles(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, profiles)
}

func (h *ProfileHandler) ListNotifications(c echo.Context) error {
	notifications, err := h.profileService.ListNotifications(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, notifications)
}

func (h *ProfileHandler) MarkNotificationRead(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.profileService.MarkNotificationRead(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
