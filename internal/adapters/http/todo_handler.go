package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

// TodoHandler handles todo-related requests
type TodoHandler struct {
	todoService ports.TodoService
	logger      *logger.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todoService ports.TodoService, logger *logger.Logger) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
		logger:      logger.WithComponent("todo_handler"),
	}
}

// ListTodos returns the caller's todos, newest first
func (h *TodoHandler) ListTodos(c echo.Context) error {
	todos, err := h.todoService.ListTodos(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) GetTodo(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	todo, err := h.todoService.GetTodo(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) CreateTodo(c echo.Context) error {
	var req ports.CreateTodoRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	todo, err := h.todoService.CreateTodo(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Create todo failed", "error", err.Error())
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, todo)
}

// UpdateTodo serves both PATCH and PUT. Only keys present in the body are written.
func (h *TodoHandler) UpdateTodo(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var req ports.UpdateTodoRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	todo, err := h.todoService.UpdateTodo(c.Request().Context(), id, req)
	if err != nil {
		h.logger.Warnw("Update todo failed", "error", err.Error(), "todo_id", id.String())
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.todoService.DeleteTodo(c.Request().Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
