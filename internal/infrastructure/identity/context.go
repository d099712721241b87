package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
)

// ContextKey type for context keys
type ContextKey string

const userContextKey ContextKey = "auth.user_id"

// WithUserID stores the authenticated user in the context
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserID returns the authenticated user or ErrUnauthenticated
func UserID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(userContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, entities.ErrUnauthenticated
	}
	return userID, nil
}
