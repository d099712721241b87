package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/todos/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ValidateToken(tokenString string) (*Claims, error)
}

// TodoService interface for todo operations
type TodoService interface {
	ListTodos(ctx context.Context) ([]*entities.Todo, error)
	GetTodo(ctx context.Context, id uuid.UUID) (*entities.Todo, error)
	CreateTodo(ctx context.Context, req CreateTodoRequest) (*entities.Todo, error)
	UpdateTodo(ctx context.Context, id uuid.UUID, req UpdateTodoRequest) (*entities.Todo, error)
	DeleteTodo(ctx context.Context, id uuid.UUID) error
}

// CategoryService interface for category operations
type CategoryService interface {
	ListCategories(ctx context.Context) ([]*entities.Category, error)
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*entities.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*entities.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	SetupDefaultCategories(ctx context.Context) (bool, error)
}

// ProfileService interface for profile lookups and notifications
type ProfileService interface {
	SearchProfiles(ctx context.Context, query string) ([]*entities.Profile, error)
	ListNotifications(ctx context.Context) ([]*entities.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
}

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
	TokenType    string            `json:"token_type"`
	ExpiresIn    int64             `json:"expires_in"`
	Profile      *entities.Profile `json:"profile"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Todo related types
type CreateTodoRequest struct {
	Title       string             `json:"title" validate:"required,max=500"`
	Content     *string            `json:"content"`
	Completed   bool               `json:"completed"`
	ImageURL    *string            `json:"image_url" validate:"omitempty,url"`
	Reminder    *time.Time         `json:"reminder"`
	Location    *entities.Location `json:"location"`
	Urgency     entities.Urgency   `json:"urgency" validate:"omitempty,oneof=low medium high urgent"`
	CategoryIDs []uuid.UUID        `json:"category_ids"`
}

// UpdateTodoRequest is the PATCH body. Keys missing from the JSON leave the
// stored value untouched; an explicit null clears nullable columns.
type UpdateTodoRequest struct {
	Title       *string                              `json:"title" validate:"omitempty,min=1,max=500"`
	Content     entities.Nullable[string]            `json:"content"`
	Completed   *bool                                `json:"completed"`
	ImageURL    entities.Nullable[string]            `json:"image_url"`
	Reminder    entities.Nullable[time.Time]         `json:"reminder"`
	Location    entities.Nullable[entities.Location] `json:"location"`
	Urgency     *entities.Urgency                    `json:"urgency" validate:"omitempty,oneof=low medium high urgent"`
	CategoryIDs *[]uuid.UUID                         `json:"category_ids"`
}

// MarshalJSON emits only the fields that are present
func (r UpdateTodoRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]interface{})
	if r.Title != nil {
		body["title"] = *r.Title
	}
	if r.Content.Set {
		body["content"] = r.Content
	}
	if r.Completed != nil {
		body["completed"] = *r.Completed
	}
	if r.ImageURL.Set {
		body["image_url"] = r.ImageURL
	}
	if r.Reminder.Set {
		body["reminder"] = r.Reminder
	}
	if r.Location.Set {
		body["location"] = r.Location
	}
	if r.Urgency != nil {
		body["urgency"] = *r.Urgency
	}
	if r.CategoryIDs != nil {
		ids := *r.CategoryIDs
		if ids == nil {
			ids = []uuid.UUID{}
		}
		body["category_ids"] = ids
	}
	return json.Marshal(body)
}

// ToPatch converts the request into the repository's partial update
func (r UpdateTodoRequest) ToPatch() TodoPatch {
	patch := TodoPatch{
		Title:     r.Title,
		Content:   r.Content,
		Completed: r.Completed,
		ImageURL:  r.ImageURL,
		Reminder:  r.Reminder,
		Location:  r.Location,
		Urgency:   r.Urgency,
	}
	if r.CategoryIDs != nil {
		ids := entities.IDList(*r.CategoryIDs).Dedup()
		patch.CategoryIDs = &ids
	}
	return patch
}

// Category related types
type CreateCategoryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"required,max=32"`
}

type UpdateCategoryRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Color *string `json:"color" validate:"omitempty,min=1,max=32"`
}
