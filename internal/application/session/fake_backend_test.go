package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/ports"
)

var errBackend = errors.New("backend unavailable")

// fakeBackend is an in-memory Backend with per-operation failure injection
type fakeBackend struct {
	mu         sync.Mutex
	todos      map[uuid.UUID]*entities.Todo
	categories map[uuid.UUID]*entities.Category
	clock      time.Time

	fail    map[string]error
	calls   map[string]int
	updates []ports.UpdateTodoRequest

	// beforeUpdate runs inside UpdateTodo before the change is applied
	beforeUpdate func(req ports.UpdateTodoRequest)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		todos:      map[uuid.UUID]*entities.Todo{},
		categories: map[uuid.UUID]*entities.Category{},
		clock:      time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		fail:       map[string]error{},
		calls:      map[string]int{},
	}
}

func (f *fakeBackend) failing(op string) error {
	f.calls[op]++
	return f.fail[op]
}

func (f *fakeBackend) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeBackend) seedTodo(title string, categoryIDs ...uuid.UUID) *entities.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.tick()
	todo := &entities.Todo{
		ID:          uuid.New(),
		Title:       title,
		Urgency:     entities.UrgencyLow,
		CategoryIDs: entities.IDList(categoryIDs).Dedup(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.todos[todo.ID] = todo
	return todo
}

func (f *fakeBackend) seedCategory(name string) *entities.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &entities.Category{ID: uuid.New(), Name: name, Color: "#FFFFFF", CreatedAt: f.tick()}
	f.categories[c.ID] = c
	return c
}

func (f *fakeBackend) stored(id uuid.UUID) (entities.Todo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.todos[id]
	if !ok {
		return entities.Todo{}, false
	}
	return t.Clone(), true
}

func (f *fakeBackend) ListTodos(ctx context.Context) ([]*entities.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("ListTodos"); err != nil {
		return nil, err
	}
	out := make([]*entities.Todo, 0, len(f.todos))
	for _, t := range f.todos {
		c := t.Clone()
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeBackend) CreateTodo(ctx context.Context, req ports.CreateTodoRequest) (*entities.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("CreateTodo"); err != nil {
		return nil, err
	}
	now := f.tick()
	todo := &entities.Todo{
		ID:          uuid.New(),
		Title:       req.Title,
		Content:     req.Content,
		Reminder:    req.Reminder,
		Location:    req.Location,
		Urgency:     req.Urgency.OrDefault(),
		CategoryIDs: entities.IDList(req.CategoryIDs).Dedup(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.todos[todo.ID] = todo
	c := todo.Clone()
	return &c, nil
}

func (f *fakeBackend) UpdateTodo(ctx context.Context, id uuid.UUID, req ports.UpdateTodoRequest) (*entities.Todo, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate(req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("UpdateTodo"); err != nil {
		return nil, err
	}
	f.updates = append(f.updates, req)

	todo, ok := f.todos[id]
	if !ok {
		return nil, entities.ErrTodoNotFound
	}
	patch := req.ToPatch()
	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.Content.Set {
		todo.Content = patch.Content.Value
	}
	if patch.Completed != nil {
		todo.Completed = *patch.Completed
	}
	if patch.Reminder.Set {
		todo.Reminder = patch.Reminder.Value
	}
	if patch.Location.Set {
		todo.Location = patch.Location.Value
	}
	if patch.Urgency != nil {
		todo.Urgency = *patch.Urgency
	}
	if patch.CategoryIDs != nil {
		todo.CategoryIDs = append(entities.IDList{}, (*patch.CategoryIDs)...)
	}
	todo.UpdatedAt = f.tick()
	c := todo.Clone()
	return &c, nil
}

func (f *fakeBackend) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("DeleteTodo"); err != nil {
		return err
	}
	if _, ok := f.todos[id]; !ok {
		return entities.ErrTodoNotFound
	}
	delete(f.todos, id)
	return nil
}

func (f *fakeBackend) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("ListCategories"); err != nil {
		return nil, err
	}
	out := make([]*entities.Category, 0, len(f.categories))
	for _, c := range f.categories {
		cp := *c
		out = append(out, &cp)
	}
	// unordered on purpose; the store sorts by name
	return out, nil
}

func (f *fakeBackend) CreateCategory(ctx context.Context, req ports.CreateCategoryRequest) (*entities.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("CreateCategory"); err != nil {
		return nil, err
	}
	c := &entities.Category{ID: uuid.New(), Name: req.Name, Color: req.Color, CreatedAt: f.tick()}
	f.categories[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeBackend) UpdateCategory(ctx context.Context, id uuid.UUID, req ports.UpdateCategoryRequest) (*entities.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("UpdateCategory"); err != nil {
		return nil, err
	}
	c, ok := f.categories[id]
	if !ok {
		return nil, entities.ErrCategoryNotFound
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Color != nil {
		c.Color = *req.Color
	}
	cp := *c
	return &cp, nil
}

// DeleteCategory mirrors the store: join rows go, todos stay
func (f *fakeBackend) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing("DeleteCategory"); err != nil {
		return err
	}
	if _, ok := f.categories[id]; !ok {
		return entities.ErrCategoryNotFound
	}
	delete(f.categories, id)
	for _, t := range f.todos {
		kept := entities.IDList{}
		for _, c := range t.CategoryIDs {
			if c != id {
				kept = append(kept, c)
			}
		}
		t.CategoryIDs = kept
	}
	return nil
}
