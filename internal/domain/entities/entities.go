package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTodoNotFound         = errors.New("todo not found")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnauthenticated      = errors.New("no authenticated user found")
	ErrInvalidUrgency       = errors.New("invalid urgency")
	ErrEmptyTitle           = errors.New("todo title cannot be empty")
	ErrInvalidLocation      = errors.New("invalid location")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrProfileExists        = errors.New("profile already exists")
	ErrValidation           = errors.New("validation failed")
)

// Urgency is an ordinal label used for sorting and display
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

type NotificationType string

const (
	NotificationTodoCompleted  NotificationType = "TODO_COMPLETED"
	NotificationTodoAssigned   NotificationType = "TODO_ASSIGNED"
	NotificationTodoUnassigned NotificationType = "TODO_UNASSIGNED"
)

// Location is the geolocation attached to a todo, stored as JSONB
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Todo represents a task record owned by one user
type Todo struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Content     *string    `json:"content" db:"content"`
	Completed   bool       `json:"completed" db:"completed"`
	ImageURL    *string    `json:"image_url" db:"image_url"`
	Reminder    *time.Time `json:"reminder" db:"reminder"`
	Location    *Location  `json:"location" db:"location"`
	Urgency     Urgency    `json:"urgency" db:"urgency"`
	CategoryIDs IDList     `json:"category_ids" db:"category_ids"`
	CreatorID   uuid.UUID  `json:"creator_id" db:"creator_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Category represents a user-defined label
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Profile represents a registered user
type Profile struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	AvatarURL    *string   `json:"avatar_url" db:"avatar_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Notification is a message addressed to one user
type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// Business logic methods for Todo

// PrimaryCategoryID returns the first associated category
func (t *Todo) PrimaryCategoryID() (uuid.UUID, bool) {
	if len(t.CategoryIDs) == 0 {
		return uuid.Nil, false
	}
	return t.CategoryIDs[0], true
}

func (t *Todo) HasCategory(id uuid.UUID) bool {
	for _, c := range t.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

func (t *Todo) IsOverdue(now time.Time) bool {
	if t.Reminder == nil || t.Completed {
		return false
	}
	return now.After(*t.Reminder)
}

// Clone returns a deep copy so callers can't alias pointer fields
func (t Todo) Clone() Todo {
	c := t
	if t.Content != nil {
		v := *t.Content
		c.Content = &v
	}
	if t.ImageURL != nil {
		v := *t.ImageURL
		c.ImageURL = &v
	}
	if t.Reminder != nil {
		v := *t.Reminder
		c.Reminder = &v
	}
	if t.Location != nil {
		v := *t.Location
		c.Location = &v
	}
	if t.CategoryIDs != nil {
		c.CategoryIDs = append(IDList{}, t.CategoryIDs...)
	}
	return c
}

// Location persistence

func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("%w: lat=%f lng=%f", ErrInvalidLocation, l.Lat, l.Lng)
	}
	return nil
}

// Value implements driver.Valuer for the JSONB column
func (l Location) Value() (driver.Value, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the JSONB column
func (l *Location) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into Location", value)
	}
}

// Utility methods
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	default:
		return false
	}
}

// Rank orders urgencies low < medium < high < urgent
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 0
	case UrgencyMedium:
		return 1
	case UrgencyHigh:
		return 2
	case UrgencyUrgent:
		return 3
	default:
		return -1
	}
}

// OrDefault returns low for an empty urgency
func (u Urgency) OrDefault() Urgency {
	if u == "" {
		return UrgencyLow
	}
	return u
}

func (nt NotificationType) IsValid() bool {
	switch nt {
	case NotificationTodoCompleted, NotificationTodoAssigned, NotificationTodoUnassigned:
		return true
	default:
		return false
	}
}
