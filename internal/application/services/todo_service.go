package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/identity"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/infrastructure/metrics"
	"github.com/taskmaster/todos/internal/ports"
)

// TodoService handles todo-related operations
type TodoService struct {
	todoRepo ports.TodoRepository
	validate *validator.Validate
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

// NewTodoService creates a new todo service
func NewTodoService(todoRepo ports.TodoRepository, logger *logger.Logger, m *metrics.Metrics) *TodoService {
	return &TodoService{
		todoRepo: todoRepo,
		validate: validator.New(),
		logger:   logger.WithComponent("todo_service"),
		metrics:  m,
	}
}

// ListTodos returns the current user's todos, newest first
func (s *TodoService) ListTodos(ctx context.Context) ([]*entities.Todo, error) {
	return s.todoRepo.GetAll(ctx)
}

// GetTodo retrieves a todo by ID
func (s *TodoService) GetTodo(ctx context.Context, id uuid.UUID) (*entities.Todo, error) {
	return s.todoRepo.GetByID(ctx, id)
}

// CreateTodo creates a new todo with its category associations
func (s *TodoService) CreateTodo(ctx context.Context, req ports.CreateTodoRequest) (*entities.Todo, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, entities.ErrEmptyTitle)
	}

	todo, err := s.todoRepo.Create(ctx, ports.CreateTodoInput{
		Title:       req.Title,
		Content:     req.Content,
		Completed:   req.Completed,
		ImageURL:    req.ImageURL,
		Reminder:    req.Reminder,
		Location:    req.Location,
		Urgency:     req.Urgency.OrDefault(),
		CategoryIDs: entities.IDList(req.CategoryIDs),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TodoCreated()
	s.logger.LogUserAction(todo.CreatorID.String(), "todo_created", map[string]interface{}{
		"todo_id":    todo.ID.String(),
		"categories": len(todo.CategoryIDs),
	})

	return todo, nil
}

// UpdateTodo applies a partial update
func (s *TodoService) UpdateTodo(ctx context.Context, id uuid.UUID, req ports.UpdateTodoRequest) (*entities.Todo, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, entities.ErrEmptyTitle)
	}

	todo, err := s.todoRepo.Update(ctx, id, req.ToPatch())
	if err != nil {
		return nil, err
	}

	s.logger.Debugw("Todo updated", "todo_id", id.String(), "categories_replaced", req.CategoryIDs != nil)
	return todo, nil
}

// DeleteTodo removes a todo and its associations
func (s *TodoService) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	if err := s.todoRepo.Delete(ctx, id); err != nil {
		return err
	}

	if userID, err := identity.UserID(ctx); err == nil {
		s.logger.LogUserAction(userID.String(), "todo_deleted", map[string]interface{}{"todo_id": id.String()})
	}
	return nil
}
