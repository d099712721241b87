// Package session keeps one user's todos and categories in memory and
// reconciles them with the backend that persists them.
//
// Every mutation except UpdateTodoCategories waits for the backend before
// touching local state. UpdateTodoCategories applies locally first and rolls
// back if the backend rejects the change.
//
// Mutations on the same todo are not serialized: when two calls race, the
// response that arrives last overwrites the local entry.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

// TodoBackend persists todos for the authenticated user
type TodoBackend interface {
	ListTodos(ctx context.Context) ([]*entities.Todo, error)
	CreateTodo(ctx context.Context, req ports.CreateTodoRequest) (*entities.Todo, error)
	UpdateTodo(ctx context.Context, id uuid.UUID, req ports.UpdateTodoRequest) (*entities.Todo, error)
	DeleteTodo(ctx context.Context, id uuid.UUID) error
}

// CategoryBackend persists categories for the authenticated user
type CategoryBackend interface {
	ListCategories(ctx context.Context) ([]*entities.Category, error)
	CreateCategory(ctx context.Context, req ports.CreateCategoryRequest) (*entities.Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, req ports.UpdateCategoryRequest) (*entities.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// Backend is satisfied by the application services and by the REST client
type Backend interface {
	TodoBackend
	CategoryBackend
}

// Notifier is told about every failed mutation before the error is returned
type Notifier func(op string, err error)

// Operation names passed to the Notifier
const (
	OpLoad               = "load"
	OpAddTodo            = "add_todo"
	OpToggleTodo         = "toggle_todo"
	OpUpdateTodoContent  = "update_todo_content"
	OpUpdateTodoCategory = "update_todo_categories"
	OpDeleteTodo         = "delete_todo"
	OpAddCategory        = "add_category"
	OpUpdateCategory     = "update_category"
	OpDeleteCategory     = "delete_category"
)

// Option configures a Store
type Option func(*Store)

func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notify = n }
}

// NewTodo is the input to AddTodo
type NewTodo struct {
	Title      string
	CategoryID *uuid.UUID
	Content    *string
	Reminder   *time.Time
	Location   *entities.Location
	Urgency    entities.Urgency
}

// ContentUpdate lists the fields UpdateTodoContent may change. Nil fields are
// left as they are.
type ContentUpdate struct {
	Content  *string
	Reminder *time.Time
	Location *entities.Location
	Title    *string
	Urgency  *entities.Urgency
}

func (u ContentUpdate) empty() bool {
	return u.Content == nil && u.Reminder == nil && u.Location == nil && u.Title == nil && u.Urgency == nil
}

// Store owns the session state. The lock is never held across a backend call.
type Store struct {
	backend Backend
	logger  *logger.Logger
	notify  Notifier

	mu         sync.RWMutex
	todos      []TodoView
	categories []entities.Category
}

// NewStore creates an empty store; call Load to fill it
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logger.NewNop(),
		notify:  func(string, error) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("session")
	return s
}

// Load replaces local state with the backend's todos and categories.
// Local annotations survive for todos that are still present.
func (s *Store) Load(ctx context.Context) error {
	todos, err := s.backend.ListTodos(ctx)
	if err != nil {
		return s.fail(OpLoad, err)
	}
	categories, err := s.backend.ListCategories(ctx)
	if err != nil {
		return s.fail(OpLoad, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[uuid.UUID]map[string]any, len(s.todos))
	for _, v := range s.todos {
		if v.Local != nil {
			previous[v.ID] = v.Local
		}
	}

	s.todos = make([]TodoView, 0, len(todos))
	for _, t := range todos {
		view := newView(*t)
		view.Local = previous[t.ID]
		s.todos = append(s.todos, view)
	}

	s.categories = make([]entities.Category, 0, len(categories))
	for _, c := range categories {
		s.categories = append(s.categories, *c)
	}
	sortCategories(s.categories)

	s.logger.Debugw("Session loaded", "todos", len(s.todos), "categories", len(s.categories))
	return nil
}

// Todos returns a copy of the todo list, newest first
func (s *Store) Todos() []TodoView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TodoView, len(s.todos))
	for i, v := range s.todos {
		out[i] = v.clone()
	}
	return out
}

// Todo returns a copy of one todo
func (s *Store) Todo(id uuid.UUID) (TodoView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return TodoView{}, false
	}
	return s.todos[i].clone(), true
}

// Categories returns a copy of the category list, ordered by name
func (s *Store) Categories() []entities.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]entities.Category(nil), s.categories...)
}

// ResolvedCategories returns the categories of a todo that still exist
// locally, skipping ids whose category has been deleted.
func (s *Store) ResolvedCategories(todoID uuid.UUID) []entities.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(todoID)
	if i < 0 {
		return nil
	}

	byID := make(map[uuid.UUID]entities.Category, len(s.categories))
	for _, c := range s.categories {
		byID[c.ID] = c
	}

	var out []entities.Category
	for _, id := range s.todos[i].CategoryIDs {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// SetLocal annotates a todo with a client-only value
func (s *Store) SetLocal(id uuid.UUID, key string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	if s.todos[i].Local == nil {
		s.todos[i].Local = make(map[string]any)
	}
	s.todos[i].Local[key] = value
	return true
}

// AddTodo creates the todo and, once the backend confirms, puts it at the head of the list
func (s *Store) AddTodo(ctx context.Context, in NewTodo) (TodoView, error) {
	categoryIDs := []uuid.UUID{}
	if in.CategoryID != nil {
		categoryIDs = append(categoryIDs, *in.CategoryID)
	}

	todo, err := s.backend.CreateTodo(ctx, ports.CreateTodoRequest{
		Title:       in.Title,
		Content:     in.Content,
		Reminder:    in.Reminder,
		Location:    in.Location,
		Urgency:     in.Urgency.OrDefault(),
		CategoryIDs: categoryIDs,
	})
	if err != nil {
		return TodoView{}, s.fail(OpAddTodo, err)
	}

	view := newView(*todo)

	s.mu.Lock()
	s.todos = append([]TodoView{view}, s.todos...)
	s.mu.Unlock()

	return view.clone(), nil
}

// ToggleTodo flips completed. An id that is not loaded is ignored and
// returns nil, nil.
func (s *Store) ToggleTodo(ctx context.Context, id uuid.UUID) (*TodoView, error) {
	current, ok := s.Todo(id)
	if !ok {
		s.logger.Debugw("Toggle ignored for unknown todo", "todo_id", id.String())
		return nil, nil
	}

	completed := !current.Completed
	todo, err := s.backend.UpdateTodo(ctx, id, ports.UpdateTodoRequest{Completed: &completed})
	if err != nil {
		return nil, s.fail(OpToggleTodo, err)
	}

	return s.applyServerState(*todo), nil
}

// UpdateTodoContent sends only the provided fields. Fields left nil keep
// their current value. An id that is not loaded is ignored.
func (s *Store) UpdateTodoContent(ctx context.Context, id uuid.UUID, update ContentUpdate) (*TodoView, error) {
	current, ok := s.Todo(id)
	if !ok {
		s.logger.Debugw("Content update ignored for unknown todo", "todo_id", id.String())
		return nil, nil
	}
	if update.empty() {
		return &current, nil
	}

	req := ports.UpdateTodoRequest{
		Title:   update.Title,
		Urgency: update.Urgency,
	}
	if update.Content != nil {
		req.Content = entities.Some(*update.Content)
	}
	if update.Reminder != nil {
		req.Reminder = entities.Some(*update.Reminder)
	}
	if update.Location != nil {
		req.Location = entities.Some(*update.Location)
	}

	todo, err := s.backend.UpdateTodo(ctx, id, req)
	if err != nil {
		return nil, s.fail(OpUpdateTodoContent, err)
	}

	return s.applyServerState(*todo), nil
}

// UpdateTodoCategories replaces the todo's categories locally before the
// backend call and restores the previous set if the call fails. Other fields
// are left as they are on rollback.
// An id that is not loaded is ignored.
func (s *Store) UpdateTodoCategories(ctx context.Context, id uuid.UUID, categoryIDs []uuid.UUID) (*TodoView, error) {
	next := entities.IDList(categoryIDs).Dedup()

	var confirmed *entities.Todo
	found, err := optimistic(
		func() (TodoView, bool) { return s.Todo(id) },
		func(fn func(TodoView) TodoView) { s.modify(id, fn) },
		func(v TodoView) TodoView {
			v.CategoryIDs = append(entities.IDList{}, next...)
			return v
		},
		func(current, snapshot TodoView) TodoView {
			current.CategoryIDs = snapshot.CategoryIDs
			return current
		},
		func() error {
			ids := []uuid.UUID(next)
			todo, err := s.backend.UpdateTodo(ctx, id, ports.UpdateTodoRequest{CategoryIDs: &ids})
			confirmed = todo
			return err
		},
	)
	if !found {
		s.logger.Debugw("Category update ignored for unknown todo", "todo_id", id.String())
		return nil, nil
	}
	if err != nil {
		s.logger.Warnw("Rolled back optimistic category update", "todo_id", id.String(), "error", err.Error())
		return nil, s.fail(OpUpdateTodoCategory, err)
	}

	return s.applyServerState(*confirmed), nil
}

// DeleteTodo removes the todo once the backend confirms. On failure the
// todo stays in the list.
func (s *Store) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	if err := s.backend.DeleteTodo(ctx, id); err != nil {
		return s.fail(OpDeleteTodo, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.todos = append(s.todos[:i], s.todos[i+1:]...)
	}
	return nil
}

// AddCategory creates a category and inserts it in name order
func (s *Store) AddCategory(ctx context.Context, name, color string) (entities.Category, error) {
	category, err := s.backend.CreateCategory(ctx, ports.CreateCategoryRequest{Name: name, Color: color})
	if err != nil {
		return entities.Category{}, s.fail(OpAddCategory, err)
	}

	s.mu.Lock()
	s.categories = append(s.categories, *category)
	sortCategories(s.categories)
	s.mu.Unlock()

	return *category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id uuid.UUID, req ports.UpdateCategoryRequest) (entities.Category, error) {
	category, err := s.backend.UpdateCategory(ctx, id, req)
	if err != nil {
		return entities.Category{}, s.fail(OpUpdateCategory, err)
	}

	s.mu.Lock()
	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories[i] = *category
		}
	}
	sortCategories(s.categories)
	s.mu.Unlock()

	return *category, nil
}

// DeleteCategory removes the category from the local list. Todos that
// reference it keep the id in CategoryIDs until they are reloaded.
func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if err := s.backend.DeleteCategory(ctx, id); err != nil {
		return s.fail(OpDeleteCategory, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			break
		}
	}
	return nil
}

// applyServerState overwrites the local entry with the backend's record.
// A todo deleted while the request was in flight is not brought back.
func (s *Store) applyServerState(todo entities.Todo) *TodoView {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(todo.ID)
	if i < 0 {
		view := newView(todo)
		return &view
	}
	s.todos[i] = s.todos[i].withServerState(todo)
	view := s.todos[i].clone()
	return &view
}

// modify rewrites the stored todo in place. Missing ids are skipped.
func (s *Store) modify(id uuid.UUID, fn func(TodoView) TodoView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.todos[i] = fn(s.todos[i].clone())
	}
}

// indexOf requires s.mu to be held
func (s *Store) indexOf(id uuid.UUID) int {
	for i := range s.todos {
		if s.todos[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) fail(op string, err error) error {
	s.logger.Warnw("Session operation failed", "operation", op, "error", err.Error())
	s.notify(op, err)
	return err
}

func sortCategories(categories []entities.Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
}
