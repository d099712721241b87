package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/todos/internal/domain/entities"
)

// TodoRepository defines the interface for todo data operations.
// Every method is scoped to the user carried by ctx.
type TodoRepository interface {
	Create(ctx context.Context, input CreateTodoInput) (*entities.Todo, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Todo, error)
	GetAll(ctx context.Context) ([]*entities.Todo, error)
	Update(ctx context.Context, id uuid.UUID, patch TodoPatch) (*entities.Todo, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	Create(ctx context.Context, name, color string) (*entities.Category, error)
	GetAll(ctx context.Context) ([]*entities.Category, error)
	Update(ctx context.Context, id uuid.UUID, patch CategoryPatch) (*entities.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *entities.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Profile, error)
	GetByEmail(ctx context.Context, email string) (*entities.Profile, error)
	GetByUsername(ctx context.Context, username string) (*entities.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]*entities.Profile, error)
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	List(ctx context.Context) ([]*entities.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

// AuthRepository defines the interface for authentication operations
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// CreateTodoInput carries the fields accepted when inserting a todo
type CreateTodoInput struct {
	Title       string
	Content     *string
	Completed   bool
	ImageURL    *string
	Reminder    *time.Time
	Location    *entities.Location
	Urgency     entities.Urgency
	CategoryIDs entities.IDList
}

// TodoPatch is a partial update. Nil pointers and unset Nullables are left untouched;
// a non-nil CategoryIDs (even empty) replaces the whole association set.
type TodoPatch struct {
	Title       *string
	Content     entities.Nullable[string]
	Completed   *bool
	ImageURL    entities.Nullable[string]
	Reminder    entities.Nullable[time.Time]
	Location    entities.Nullable[entities.Location]
	Urgency     *entities.Urgency
	CategoryIDs *entities.IDList
}

// HasScalarChanges reports whether any column of the todos row is touched
func (p TodoPatch) HasScalarChanges() bool {
	return p.Title != nil || p.Content.Set || p.Completed != nil || p.ImageURL.Set ||
		p.Reminder.Set || p.Location.Set || p.Urgency != nil
}

// CategoryPatch is a partial category update
type CategoryPatch struct {
	Name  *string
	Color *string
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        int        `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
