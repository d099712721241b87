package session

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Status selects todos by completion
type Status string

const (
	StatusAll       Status = "all"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// TodoFilter narrows a todo list. Zero values match everything.
type TodoFilter struct {
	Query      string
	Status     Status
	CategoryID *uuid.UUID
}

func (f TodoFilter) matches(v TodoView) bool {
	switch f.Status {
	case StatusActive:
		if v.Completed {
			return false
		}
	case StatusCompleted:
		if !v.Completed {
			return false
		}
	}

	if f.CategoryID != nil && !v.HasCategory(*f.CategoryID) {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		inTitle := strings.Contains(strings.ToLower(v.Title), q)
		inContent := v.Content != nil && strings.Contains(strings.ToLower(*v.Content), q)
		if !inTitle && !inContent {
			return false
		}
	}
	return true
}

// Filter returns the todos matching f, keeping their order
func Filter(todos []TodoView, f TodoFilter) []TodoView {
	out := make([]TodoView, 0, len(todos))
	for _, v := range todos {
		if f.matches(v) {
			out = append(out, v)
		}
	}
	return out
}

// FilterTodos filters a snapshot of the store's todos
func (s *Store) FilterTodos(f TodoFilter) []TodoView {
	return Filter(s.Todos(), f)
}

// SortByUrgency returns a copy ordered most urgent first, newest first within a level
func SortByUrgency(todos []TodoView) []TodoView {
	out := append([]TodoView(nil), todos...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Urgency.OrDefault().Rank(), out[j].Urgency.OrDefault().Rank()
		if ri != rj {
			return ri > rj
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
