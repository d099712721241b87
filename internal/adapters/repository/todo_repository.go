package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/database"
	"github.com/taskmaster/todos/internal/infrastructure/identity"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/infrastructure/metrics"
	"github.com/taskmaster/todos/internal/ports"
)

const (
	todoColumns = "id, title, content, completed, image_url, reminder, location, urgency, creator_id, created_at, updated_at"

	// categoryAggregate resolves a todo's associations in insertion order; todos without
	// any join row get an empty array instead of NULL.
	categoryAggregate = "COALESCE(ARRAY_AGG(tc.category_id ORDER BY tc.position) " +
		"FILTER (WHERE tc.category_id IS NOT NULL), '{}') AS category_ids"

	compensationTimeout = 5 * time.Second
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// TodoRepositoryImpl implements the TodoRepository interface
type TodoRepositoryImpl struct {
	db      *sqlx.DB
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewTodoRepository creates a new todo repository
func NewTodoRepository(db *sqlx.DB, log *logger.Logger, m *metrics.Metrics) ports.TodoRepository {
	return &TodoRepositoryImpl{
		db:      db,
		logger:  log.WithComponent("todo_repository"),
		metrics: m,
	}
}

// Create inserts the todo row and then its category associations. The two
// statements are not transactional; if the association insert fails, or a
// category is not owned by the caller, the todo row is removed again and the
// association error is returned.
func (r *TodoRepositoryImpl) Create(ctx context.Context, input ports.CreateTodoInput) (*entities.Todo, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	urgency := input.Urgency.OrDefault()
	if !urgency.IsValid() {
		return nil, fmt.Errorf("%w: %q", entities.ErrInvalidUrgency, input.Urgency)
	}
	if input.Location != nil {
		if err := input.Location.Validate(); err != nil {
			return nil, err
		}
	}

	query, args, err := psql.Insert("todos").
		Columns("title", "content", "completed", "image_url", "reminder", "location", "urgency", "creator_id").
		Values(input.Title, input.Content, input.Completed, input.ImageURL, input.Reminder, input.Location, urgency, userID).
		Suffix("RETURNING " + todoColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert todo: %w", err)
	}

	var todo entities.Todo
	start := time.Now()
	err = sqlx.GetContext(ctx, r.db, &todo, query, args...)
	r.logger.LogDatabaseQuery(query, msSince(start), err)
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}

	categoryIDs := input.CategoryIDs.Dedup()
	if err := attachCategories(ctx, r.db, userID, todo.ID, categoryIDs); err != nil {
		r.compensateCreate(ctx, todo.ID, userID, err)
		return nil, err
	}

	todo.CategoryIDs = categoryIDs
	return &todo, nil
}

// compensateCreate deletes a todo whose associations could not be written.
// It runs detached from ctx so a cancelled request still cleans up.
func (r *TodoRepositoryImpl) compensateCreate(ctx context.Context, todoID, userID uuid.UUID, cause error) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	_, err := r.db.ExecContext(cleanupCtx, `DELETE FROM todos WHERE id = $1 AND creator_id = $2`, todoID, userID)
	r.metrics.Compensated(err)
	if err != nil {
		r.logger.Errorw("Compensating delete failed, todo left without categories",
			"todo_id", todoID.String(),
			"cause", cause.Error(),
			"error", err.Error(),
		)
		return
	}
	r.logger.Warnw("Rolled back todo after category association failure",
		"todo_id", todoID.String(),
		"cause", cause.Error(),
	)
}

func (r *TodoRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Todo, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := selectTodos(userID).Where("t.id = ?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get todo: %w", err)
	}

	var todo entities.Todo
	if err := sqlx.GetContext(ctx, r.db, &todo, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTodoNotFound
		}
		return nil, fmt.Errorf("get todo by id: %w", err)
	}

	return &todo, nil
}

// GetAll returns the user's todos newest first with their resolved categories
func (r *TodoRepositoryImpl) GetAll(ctx context.Context) ([]*entities.Todo, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := selectTodos(userID).OrderBy("t.created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list todos: %w", err)
	}

	todos := []*entities.Todo{}
	start := time.Now()
	err = sqlx.SelectContext(ctx, r.db, &todos, query, args...)
	r.logger.LogDatabaseQuery(query, msSince(start), err)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	return todos, nil
}

// Update writes only the fields present in patch. Scalar columns and the
// association replacement share one transaction.
func (r *TodoRepositoryImpl) Update(ctx context.Context, id uuid.UUID, patch ports.TodoPatch) (*entities.Todo, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	builder, err := buildTodoUpdate(id, userID, patch)
	if err != nil {
		return nil, err
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update todo: %w", err)
	}

	var todo entities.Todo
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := sqlx.GetContext(ctx, tx, &todo, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return entities.ErrTodoNotFound
			}
			return fmt.Errorf("update todo: %w", err)
		}

		if patch.CategoryIDs == nil {
			ids, err := todoCategoryIDs(ctx, tx, id)
			if err != nil {
				return err
			}
			todo.CategoryIDs = ids
			return nil
		}

		ids := patch.CategoryIDs.Dedup()
		if _, err := tx.ExecContext(ctx, `DELETE FROM todo_categories WHERE todo_id = $1`, id); err != nil {
			return fmt.Errorf("clear todo categories: %w", err)
		}
		if err := attachCategories(ctx, tx, userID, id, ids); err != nil {
			return err
		}
		todo.CategoryIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &todo, nil
}

// Delete removes the todo and its associations together
func (r *TodoRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM todo_categories WHERE todo_id = $1`, id); err != nil {
			return fmt.Errorf("delete todo categories: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND creator_id = $2`, id, userID)
		if err != nil {
			return fmt.Errorf("delete todo: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return entities.ErrTodoNotFound
		}
		return nil
	})
}

func selectTodos(userID uuid.UUID) squirrel.SelectBuilder {
	return psql.Select(
		"t.id", "t.title", "t.content", "t.completed", "t.image_url", "t.reminder",
		"t.location", "t.urgency", "t.creator_id", "t.created_at", "t.updated_at",
	).
		Column(categoryAggregate).
		From("todos t").
		LeftJoin("todo_categories tc ON tc.todo_id = t.id").
		Where("t.creator_id = ?", userID).
		GroupBy("t.id")
}

func buildTodoUpdate(id, userID uuid.UUID, patch ports.TodoPatch) (squirrel.UpdateBuilder, error) {
	b := psql.Update("todos")

	if patch.Title != nil {
		if *patch.Title == "" {
			return b, entities.ErrEmptyTitle
		}
		b = b.Set("title", *patch.Title)
	}
	if patch.Content.Set {
		b = b.Set("content", patch.Content.Value)
	}
	if patch.Completed != nil {
		b = b.Set("completed", *patch.Completed)
	}
	if patch.ImageURL.Set {
		b = b.Set("image_url", patch.ImageURL.Value)
	}
	if patch.Reminder.Set {
		b = b.Set("reminder", patch.Reminder.Value)
	}
	if patch.Location.Set {
		if patch.Location.Value != nil {
			if err := patch.Location.Value.Validate(); err != nil {
				return b, err
			}
		}
		b = b.Set("location", patch.Location.Value)
	}
	if patch.Urgency != nil {
		if !patch.Urgency.IsValid() {
			return b, fmt.Errorf("%w: %q", entities.ErrInvalidUrgency, *patch.Urgency)
		}
		b = b.Set("urgency", *patch.Urgency)
	}

	return b.Set("updated_at", squirrel.Expr("now()")).
		Where("id = ?", id).
		Where("creator_id = ?", userID).
		Suffix("RETURNING " + todoColumns), nil
}

// attachCategories writes all associations with one INSERT. Every id
// must name a category owned by userID, otherwise nothing is written and
// ErrCategoryNotFound is returned.
func attachCategories(ctx context.Context, q sqlx.ExtContext, userID, todoID uuid.UUID, ids entities.IDList) error {
	if len(ids) == 0 {
		return nil
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").
		From("categories").
		Where("user_id = ?", userID).
		Where(squirrel.Eq{"id": []uuid.UUID(ids)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build count owned categories: %w", err)
	}

	var owned int
	if err := sqlx.GetContext(ctx, q, &owned, countQuery, countArgs...); err != nil {
		return fmt.Errorf("count owned categories: %w", err)
	}
	if owned != len(ids) {
		return entities.ErrCategoryNotFound
	}

	b := psql.Insert("todo_categories").Columns("todo_id", "category_id", "position")
	for i, categoryID := range ids {
		b = b.Values(todoID, categoryID, i)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build insert todo categories: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert todo categories: %w", err)
	}
	return nil
}

func todoCategoryIDs(ctx context.Context, q sqlx.QueryerContext, todoID uuid.UUID) (entities.IDList, error) {
	var ids []uuid.UUID
	err := sqlx.SelectContext(ctx, q, &ids,
		`SELECT category_id FROM todo_categories WHERE todo_id = $1 ORDER BY position`, todoID)
	if err != nil {
		return nil, fmt.Errorf("get todo categories: %w", err)
	}
	return append(entities.IDList{}, ids...), nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
