package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/database"
	"github.com/taskmaster/todos/internal/infrastructure/identity"
	"github.com/taskmaster/todos/internal/ports"
)

const categoryColumns = "id, name, color, user_id, created_at"

// CategoryRepositoryImpl implements the CategoryRepository interface
type CategoryRepositoryImpl struct {
	db *sqlx.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sqlx.DB) ports.CategoryRepository {
	return &CategoryRepositoryImpl{db: db}
}

func (r *CategoryRepositoryImpl) Create(ctx context.Context, name, color string) (*entities.Category, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO categories (name, color, user_id)
		VALUES ($1, $2, $3)
		RETURNING ` + categoryColumns

	var category entities.Category
	if err := r.db.GetContext(ctx, &category, query, name, color, userID); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return &category, nil
}

// GetAll returns the user's categories ordered by name
func (r *CategoryRepositoryImpl) GetAll(ctx context.Context) ([]*entities.Category, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1 ORDER BY name ASC`

	categories := []*entities.Category{}
	if err := r.db.SelectContext(ctx, &categories, query, userID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

func (r *CategoryRepositoryImpl) Update(ctx context.Context, id uuid.UUID, patch ports.CategoryPatch) (*entities.Category, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	b := psql.Update("categories")
	if patch.Name != nil {
		b = b.Set("name", *patch.Name)
	}
	if patch.Color != nil {
		b = b.Set("color", *patch.Color)
	}

	var category entities.Category
	if patch.Name == nil && patch.Color == nil {
		// nothing to write, return the stored row
		query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND user_id = $2`
		err = r.db.GetContext(ctx, &category, query, id, userID)
	} else {
		query, args, buildErr := b.Where("id = ?", id).
			Where("user_id = ?", userID).
			Suffix("RETURNING " + categoryColumns).
			ToSql()
		if buildErr != nil {
			return nil, fmt.Errorf("build update category: %w", buildErr)
		}
		err = r.db.GetContext(ctx, &category, query, args...)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("update category: %w", err)
	}

	return &category, nil
}

// Delete clears the category's associations before removing it
func (r *CategoryRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM todo_categories WHERE category_id = $1`, id); err != nil {
			return fmt.Errorf("delete category associations: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return entities.ErrCategoryNotFound
		}
		return nil
	})
}

func (r *CategoryRepositoryImpl) Count(ctx context.Context) (int, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM categories WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return count, nil
}
