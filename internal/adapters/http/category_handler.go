package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryService ports.CategoryService
	logger          *logger.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService ports.CategoryService, logger *logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger.WithComponent("category_handler"),
	}
}

func (h *CategoryHandler) ListCategories(c echo.Context) error {
	categories, err := h.categoryService.ListCategories(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req ports.CreateCategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := h.categoryService.CreateCategory(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req ports.UpdateCategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	category, err := h.categoryService.UpdateCategory(c.Request().Context(), id, req)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory removes the category. Todos lose the association but are kept.
func (h *CategoryHandler) DeleteCategory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.categoryService.DeleteCategory(c.Request().Context(), id); err != nil {
		h.logger.Warnw("Delete category failed", "error", err.Error(), "category_id", id.String())
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetupDefaults seeds the starter categories for a user who has none
func (h *CategoryHandler) SetupDefaults(c echo.Context) error {
	created, err := h.categoryService.SetupDefaultCategories(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, SeedResponse{Created: created})
}
