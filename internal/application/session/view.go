package session

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
)

// TodoView is a todo as held by the session, plus client-only annotations
// that the server never sees. The single-category and due-date shapes some
// screens expect are derived from the canonical fields on every read.
type TodoView struct {
	entities.Todo
	Local map[string]any
}

func newView(todo entities.Todo) TodoView {
	return TodoView{Todo: todo.Clone()}
}

// CategoryID is the first associated category, if any
func (v TodoView) CategoryID() (uuid.UUID, bool) {
	return v.PrimaryCategoryID()
}

// DueDate mirrors Reminder
func (v TodoView) DueDate() *time.Time {
	if v.Reminder == nil {
		return nil
	}
	d := *v.Reminder
	return &d
}

func (v TodoView) clone() TodoView {
	return TodoView{Todo: v.Todo.Clone(), Local: maps.Clone(v.Local)}
}

// withServerState replaces the canonical record and keeps local annotations
func (v TodoView) withServerState(todo entities.Todo) TodoView {
	return TodoView{Todo: todo.Clone(), Local: v.Local}
}

func (v TodoView) MarshalJSON() ([]byte, error) {
	var categoryID *uuid.UUID
	if id, ok := v.CategoryID(); ok {
		categoryID = &id
	}

	return json.Marshal(struct {
		entities.Todo
		CategoryID *uuid.UUID     `json:"category_id"`
		DueDate    *time.Time     `json:"due_date"`
		Local      map[string]any `json:"local,omitempty"`
	}{
		Todo:       v.Todo,
		CategoryID: categoryID,
		DueDate:    v.DueDate(),
		Local:      v.Local,
	})
}
