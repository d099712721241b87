package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/infrastructure/metrics"
	"github.com/taskmaster/todos/internal/ports"
)

// DefaultCategory is a category created for users who have none
type DefaultCategory struct {
	Name  string
	Color string
}

// DefaultCategories are seeded in this order
var DefaultCategories = []DefaultCategory{
	{Name: "Personal", Color: "#E5DEFF"},
	{Name: "Work", Color: "#FDE1D3"},
	{Name: "Shopping", Color: "#D3E4FD"},
	{Name: "Health", Color: "#FFE5E5"},
}

// CategoryService handles category operations
type CategoryService struct {
	categoryRepo ports.CategoryRepository
	validate     *validator.Validate
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo ports.CategoryRepository, logger *logger.Logger, m *metrics.Metrics) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		validate:     validator.New(),
		logger:       logger.WithComponent("category_service"),
		metrics:      m,
	}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	return s.categoryRepo.GetAll(ctx)
}

func (s *CategoryService) CreateCategory(ctx context.Context, req ports.CreateCategoryRequest) (*entities.Category, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	return s.categoryRepo.Create(ctx, req.Name, req.Color)
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id uuid.UUID, req ports.UpdateCategoryRequest) (*entities.Category, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	return s.categoryRepo.Update(ctx, id, ports.CategoryPatch{Name: req.Name, Color: req.Color})
}

// DeleteCategory removes the category and its todo associations.
// Todos themselves are left in place.
func (s *CategoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.categoryRepo.Delete(ctx, id)
}

// SetupDefaultCategories seeds DefaultCategories when the user has no categories.
// Individual create failures are logged and skipped. It reports whether seeding ran.
func (s *CategoryService) SetupDefaultCategories(ctx context.Context) (bool, error) {
	count, err := s.categoryRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	created := 0
	for _, def := range DefaultCategories {
		if _, err := s.categoryRepo.Create(ctx, def.Name, def.Color); err != nil {
			s.logger.Warnw("Failed to create default category", "name", def.Name, "error", err.Error())
			continue
		}
		created++
	}

	s.metrics.CategoriesSeeded()
	s.logger.Infow("Default categories created", "created", created, "expected", len(DefaultCategories))
	return true, nil
}
