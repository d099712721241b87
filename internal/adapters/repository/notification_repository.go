package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/identity"
	"github.com/taskmaster/todos/internal/ports"
)

// NotificationRepositoryImpl implements the NotificationRepository interface
type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB) ports.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

// List returns the current user's notifications, newest first
func (r *NotificationRepositoryImpl) List(ctx context.Context) ([]*entities.Notification, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, message, type, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC`

	notifications := []*entities.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return notifications, nil
}

func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id uuid.UUID) error {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entities.ErrNotificationNotFound
	}

	return nil
}
