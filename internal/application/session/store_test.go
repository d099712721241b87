package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/ports"
)

type notification struct {
	op  string
	err error
}

func newLoadedStore(t *testing.T, backend *fakeBackend) (*Store, *[]notification) {
	t.Helper()
	var mu sync.Mutex
	notes := &[]notification{}
	store := NewStore(backend, WithNotifier(func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		*notes = append(*notes, notification{op: op, err: err})
	}))
	require.NoError(t, store.Load(context.Background()))
	return store, notes
}

// assertDerivedFields checks that category_id and due_date track the canonical fields
func assertDerivedFields(t *testing.T, store *Store) {
	t.Helper()
	for _, v := range store.Todos() {
		id, ok := v.CategoryID()
		if len(v.CategoryIDs) == 0 {
			assert.False(t, ok, "todo %s has no categories but reports one", v.ID)
		} else {
			assert.True(t, ok)
			assert.Equal(t, v.CategoryIDs[0], id)
		}
		assert.Equal(t, v.Reminder, v.DueDate())
	}
}

func ids(views []TodoView) []uuid.UUID {
	out := make([]uuid.UUID, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func TestLoad(t *testing.T) {
	backend := newFakeBackend()
	oldest := backend.seedTodo("oldest")
	middle := backend.seedTodo("middle")
	newest := backend.seedTodo("newest")
	backend.seedCategory("Work")
	backend.seedCategory("Health")
	backend.seedCategory("Personal")

	store, _ := newLoadedStore(t, backend)

	assert.Equal(t, []uuid.UUID{newest.ID, middle.ID, oldest.ID}, ids(store.Todos()))

	var names []string
	for _, c := range store.Categories() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Health", "Personal", "Work"}, names)
}

func TestLoadFailureKeepsState(t *testing.T) {
	backend := newFakeBackend()
	backend.seedTodo("kept")
	store, notes := newLoadedStore(t, backend)

	backend.fail["ListTodos"] = errBackend
	err := store.Load(context.Background())
	assert.ErrorIs(t, err, errBackend)
	assert.Len(t, store.Todos(), 1)
	require.Len(t, *notes, 1)
	assert.Equal(t, OpLoad, (*notes)[0].op)
}

func TestLoadKeepsLocalAnnotations(t *testing.T) {
	backend := newFakeBackend()
	todo := backend.seedTodo("annotated")
	store, _ := newLoadedStore(t, backend)

	require.True(t, store.SetLocal(todo.ID, "expanded", true))
	require.NoError(t, store.Load(context.Background()))

	v, ok := store.Todo(todo.ID)
	require.True(t, ok)
	assert.Equal(t, true, v.Local["expanded"])
}

func TestAddTodo(t *testing.T) {
	t.Run("prepends the confirmed todo", func(t *testing.T) {
		backend := newFakeBackend()
		existing := backend.seedTodo("existing")
		store, _ := newLoadedStore(t, backend)
		cat := uuid.New()

		view, err := store.AddTodo(context.Background(), NewTodo{Title: "Buy milk", CategoryID: &cat})
		require.NoError(t, err)
		assert.Equal(t, entities.IDList{cat}, view.CategoryIDs)
		assert.Equal(t, entities.UrgencyLow, view.Urgency)

		assert.Equal(t, []uuid.UUID{view.ID, existing.ID}, ids(store.Todos()))
		assertDerivedFields(t, store)
	})

	t.Run("no category sends an empty set", func(t *testing.T) {
		store, _ := newLoadedStore(t, newFakeBackend())

		view, err := store.AddTodo(context.Background(), NewTodo{Title: "Loose"})
		require.NoError(t, err)
		assert.Empty(t, view.CategoryIDs)
		_, ok := view.CategoryID()
		assert.False(t, ok)
	})

	t.Run("failure leaves state untouched and notifies", func(t *testing.T) {
		backend := newFakeBackend()
		backend.seedTodo("existing")
		store, notes := newLoadedStore(t, backend)
		before := store.Todos()

		backend.fail["CreateTodo"] = errBackend
		_, err := store.AddTodo(context.Background(), NewTodo{Title: "Doomed"})
		assert.ErrorIs(t, err, errBackend)
		assert.Equal(t, before, store.Todos())
		require.Len(t, *notes, 1)
		assert.Equal(t, OpAddTodo, (*notes)[0].op)
	})
}

func TestToggleTodo(t *testing.T) {
	backend := newFakeBackend()
	todo := backend.seedTodo("Water plants")
	store, _ := newLoadedStore(t, backend)
	store.SetLocal(todo.ID, "subtasks", []string{"front yard"})

	view, err := store.ToggleTodo(context.Background(), todo.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.True(t, view.Completed)
	remote, _ := backend.stored(todo.ID)
	assert.True(t, remote.Completed)
	assert.Equal(t, []string{"front yard"}, view.Local["subtasks"], "client-only fields survive the server response")

	view, err = store.ToggleTodo(context.Background(), todo.ID)
	require.NoError(t, err)
	assert.False(t, view.Completed)
	local, _ := store.Todo(todo.ID)
	assert.False(t, local.Completed)
	remote, _ = backend.stored(todo.ID)
	assert.False(t, remote.Completed)
}

func TestToggleUnknownTodoIsNoop(t *testing.T) {
	backend := newFakeBackend()
	store, notes := newLoadedStore(t, backend)

	view, err := store.ToggleTodo(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, view)
	assert.Zero(t, backend.calls["UpdateTodo"])
	assert.Empty(t, *notes)
}

func TestToggleFailureKeepsCompleted(t *testing.T) {
	backend := newFakeBackend()
	todo := backend.seedTodo("Stays open")
	store, _ := newLoadedStore(t, backend)

	backend.fail["UpdateTodo"] = errBackend
	_, err := store.ToggleTodo(context.Background(), todo.ID)
	assert.ErrorIs(t, err, errBackend)

	local, _ := store.Todo(todo.ID)
	assert.False(t, local.Completed)
}

func TestUpdateTodoContent(t *testing.T) {
	backend := newFakeBackend()
	todo := backend.seedTodo("Plan trip")
	store, _ := newLoadedStore(t, backend)
	ctx := context.Background()

	content := "<p>book flights</p>"
	reminder := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	view, err := store.UpdateTodoContent(ctx, todo.ID, ContentUpdate{Content: &content, Reminder: &reminder})
	require.NoError(t, err)
	require.NotNil(t, view.Content)
	assert.Equal(t, content, *view.Content)
	require.NotNil(t, view.DueDate())
	assert.True(t, reminder.Equal(*view.DueDate()))

	title := "Plan summer trip"
	urgency := entities.UrgencyHigh
	view, err = store.UpdateTodoContent(ctx, todo.ID, ContentUpdate{Title: &title, Urgency: &urgency})
	require.NoError(t, err)
	assert.Equal(t, title, view.Title)
	assert.Equal(t, entities.UrgencyHigh, view.Urgency)
	require.NotNil(t, view.Content, "fields not passed keep their value")
	assert.Equal(t, content, *view.Content)
	require.NotNil(t, view.Reminder)

	last := backend.updates[len(backend.updates)-1]
	assert.False(t, last.Content.Set, "only provided fields are sent")
	assert.False(t, last.Reminder.Set)
	assert.Nil(t, last.CategoryIDs)

	assertDerivedFields(t, store)
}

func TestUpdateTodoContentUnknownIsNoop(t *testing.T) {
	backend := newFakeBackend()
	store, _ := newLoadedStore(t, backend)
	title := "ghost"

	view, err := store.UpdateTodoContent(context.Background(), uuid.New(), ContentUpdate{Title: &title})
	assert.NoError(t, err)
	assert.Nil(t, view)
	assert.Zero(t, backend.calls["UpdateTodo"])
}

func TestUpdateTodoCategoriesIsOptimistic(t *testing.T) {
	backend := newFakeBackend()
	a1, b1, b2 := uuid.New(), uuid.New(), uuid.New()
	todo := backend.seedTodo("Tagged", a1)
	store, _ := newLoadedStore(t, backend)

	var duringCall entities.IDList
	backend.beforeUpdate = func(ports.UpdateTodoRequest) {
		v, _ := store.Todo(todo.ID)
		duringCall = v.CategoryIDs
	}

	view, err := store.UpdateTodoCategories(context.Background(), todo.ID, []uuid.UUID{b1, b2})
	require.NoError(t, err)
	assert.Equal(t, entities.IDList{b1, b2}, duringCall, "local state changes before the backend answers")
	assert.Equal(t, entities.IDList{b1, b2}, view.CategoryIDs)

	remote, _ := backend.stored(todo.ID)
	assert.Equal(t, entities.IDList{b1, b2}, remote.CategoryIDs)
	assertDerivedFields(t, store)
}

func TestUpdateTodoCategoriesRollsBack(t *testing.T) {
	backend := newFakeBackend()
	a1, a2, b1 := uuid.New(), uuid.New(), uuid.New()
	todo := backend.seedTodo("Tagged", a1, a2)
	store, notes := newLoadedStore(t, backend)
	store.SetLocal(todo.ID, "pinned", true)

	var duringCall entities.IDList
	backend.beforeUpdate = func(ports.UpdateTodoRequest) {
		v, _ := store.Todo(todo.ID)
		duringCall = v.CategoryIDs
	}
	backend.fail["UpdateTodo"] = errBackend

	view, err := store.UpdateTodoCategories(context.Background(), todo.ID, []uuid.UUID{b1})
	assert.ErrorIs(t, err, errBackend)
	assert.Nil(t, view)
	assert.Equal(t, entities.IDList{b1}, duringCall)

	local, ok := store.Todo(todo.ID)
	require.True(t, ok)
	assert.Equal(t, entities.IDList{a1, a2}, local.CategoryIDs)
	assert.Equal(t, true, local.Local["pinned"])
	first, _ := local.CategoryID()
	assert.Equal(t, a1, first)

	require.Len(t, *notes, 1)
	assert.Equal(t, OpUpdateTodoCategory, (*notes)[0].op)
}

func TestUpdateTodoCategoriesRollbackKeepsConfirmedToggle(t *testing.T) {
	backend := newFakeBackend()
	a1, b1 := uuid.New(), uuid.New()
	todo := backend.seedTodo("Tagged", a1)
	store, notes := newLoadedStore(t, backend)

	backend.fail["UpdateTodo"] = errBackend
	backend.beforeUpdate = func(req ports.UpdateTodoRequest) {
		if req.CategoryIDs == nil {
			return
		}
		// a toggle confirmed while the category call is still in flight
		delete(backend.fail, "UpdateTodo")
		_, err := store.ToggleTodo(context.Background(), todo.ID)
		require.NoError(t, err)
		backend.fail["UpdateTodo"] = errBackend
	}

	_, err := store.UpdateTodoCategories(context.Background(), todo.ID, []uuid.UUID{b1})
	assert.ErrorIs(t, err, errBackend)

	local, ok := store.Todo(todo.ID)
	require.True(t, ok)
	assert.Equal(t, entities.IDList{a1}, local.CategoryIDs)
	assert.True(t, local.Completed, "confirmed toggle survives the rollback")
	assert.True(t, backend.todos[todo.ID].Completed)
	require.Len(t, *notes, 1)
}

func TestUpdateTodoCategoriesEmptySet(t *testing.T) {
	backend := newFakeBackend()
	todo := backend.seedTodo("Tagged", uuid.New())
	store, _ := newLoadedStore(t, backend)

	view, err := store.UpdateTodoCategories(context.Background(), todo.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, view.CategoryIDs)
	_, ok := view.CategoryID()
	assert.False(t, ok)

	require.NotNil(t, backend.updates[0].CategoryIDs, "an empty set is still sent")
	assert.Empty(t, *backend.updates[0].CategoryIDs)
}

func TestDeleteTodo(t *testing.T) {
	backend := newFakeBackend()
	todo := backend.seedTodo("Disposable")
	store, _ := newLoadedStore(t, backend)

	backend.fail["DeleteTodo"] = errBackend
	assert.ErrorIs(t, store.DeleteTodo(context.Background(), todo.ID), errBackend)
	_, ok := store.Todo(todo.ID)
	assert.True(t, ok, "a failed delete leaves the todo visible")

	delete(backend.fail, "DeleteTodo")
	require.NoError(t, store.DeleteTodo(context.Background(), todo.ID))
	_, ok = store.Todo(todo.ID)
	assert.False(t, ok)
}

func TestDeleteCategoryLeavesTodoCategoryIDs(t *testing.T) {
	backend := newFakeBackend()
	cat1 := backend.seedCategory("cat-1")
	cat2 := backend.seedCategory("cat-2")
	first := backend.seedTodo("first", cat1.ID)
	second := backend.seedTodo("second", cat2.ID, cat1.ID)
	store, _ := newLoadedStore(t, backend)

	require.NoError(t, store.DeleteCategory(context.Background(), cat1.ID))

	for _, c := range store.Categories() {
		assert.NotEqual(t, cat1.ID, c.ID)
	}
	remote, _ := backend.stored(first.ID)
	assert.Empty(t, remote.CategoryIDs, "join rows are gone in the store")

	// known behavior: the session does not rewrite other todos
	local, _ := store.Todo(first.ID)
	assert.Equal(t, entities.IDList{cat1.ID}, local.CategoryIDs)
	local, _ = store.Todo(second.ID)
	assert.Equal(t, entities.IDList{cat2.ID, cat1.ID}, local.CategoryIDs)

	resolved := store.ResolvedCategories(second.ID)
	require.Len(t, resolved, 1)
	assert.Equal(t, cat2.ID, resolved[0].ID)

	require.NoError(t, store.Load(context.Background()))
	local, _ = store.Todo(second.ID)
	assert.Equal(t, entities.IDList{cat2.ID}, local.CategoryIDs, "a reload picks up the store's view")
}

func TestCategoryMutations(t *testing.T) {
	backend := newFakeBackend()
	store, notes := newLoadedStore(t, backend)
	ctx := context.Background()

	_, err := store.AddCategory(ctx, "Work", "#FDE1D3")
	require.NoError(t, err)
	health, err := store.AddCategory(ctx, "Health", "#FFE5E5")
	require.NoError(t, err)
	_, err = store.AddCategory(ctx, "Work", "#000000")
	require.NoError(t, err, "duplicate names are allowed")

	names := func() []string {
		var out []string
		for _, c := range store.Categories() {
			out = append(out, c.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Health", "Work", "Work"}, names())

	renamed := "Zen"
	_, err = store.UpdateCategory(ctx, health.ID, ports.UpdateCategoryRequest{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, []string{"Work", "Work", "Zen"}, names())

	backend.fail["DeleteCategory"] = errBackend
	assert.ErrorIs(t, store.DeleteCategory(ctx, health.ID), errBackend)
	assert.Len(t, store.Categories(), 3)
	require.Len(t, *notes, 1)
	assert.Equal(t, OpDeleteCategory, (*notes)[0].op)
}

func TestAccessorsReturnCopies(t *testing.T) {
	backend := newFakeBackend()
	cat := uuid.New()
	todo := backend.seedTodo("Original", cat)
	store, _ := newLoadedStore(t, backend)
	store.SetLocal(todo.ID, "note", "keep")

	todos := store.Todos()
	todos[0].Title = "Mutated"
	todos[0].CategoryIDs[0] = uuid.Nil
	todos[0].Local["note"] = "changed"

	categories := store.Categories()
	if len(categories) > 0 {
		categories[0].Name = "Mutated"
	}

	v, _ := store.Todo(todo.ID)
	assert.Equal(t, "Original", v.Title)
	assert.Equal(t, entities.IDList{cat}, v.CategoryIDs)
	assert.Equal(t, "keep", v.Local["note"])
}

func TestLastResponseWins(t *testing.T) {
	backend := newFakeBackend()
	todo := backend.seedTodo("Draft")
	store, _ := newLoadedStore(t, backend)
	ctx := context.Background()

	release := make(chan struct{})
	slowStarted := make(chan struct{})
	backend.beforeUpdate = func(req ports.UpdateTodoRequest) {
		if req.Title != nil && *req.Title == "slow" {
			close(slowStarted)
			<-release
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slow := "slow"
		_, err := store.UpdateTodoContent(ctx, todo.ID, ContentUpdate{Title: &slow})
		assert.NoError(t, err)
	}()

	<-slowStarted
	fast := "fast"
	_, err := store.UpdateTodoContent(ctx, todo.ID, ContentUpdate{Title: &fast})
	require.NoError(t, err)
	v, _ := store.Todo(todo.ID)
	assert.Equal(t, "fast", v.Title)

	close(release)
	wg.Wait()

	v, _ = store.Todo(todo.ID)
	assert.Equal(t, "slow", v.Title, "the response that arrives last overwrites local state")
}

func TestStoresAreIsolated(t *testing.T) {
	backendA, backendB := newFakeBackend(), newFakeBackend()
	backendA.seedTodo("only in A")

	storeA, _ := newLoadedStore(t, backendA)
	storeB, _ := newLoadedStore(t, backendB)

	assert.Len(t, storeA.Todos(), 1)
	assert.Empty(t, storeB.Todos())
}

func TestTodoViewJSON(t *testing.T) {
	cat := uuid.New()
	reminder := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	view := newView(entities.Todo{ID: uuid.New(), Title: "Call", Reminder: &reminder, CategoryIDs: entities.IDList{cat}})

	out, err := json.Marshal(view)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, cat.String(), decoded["category_id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", decoded["due_date"])
	assert.Equal(t, "Call", decoded["title"])
	assert.NotContains(t, decoded, "local")

	out, err = json.Marshal(newView(entities.Todo{ID: uuid.New(), Title: "Bare"}))
	require.NoError(t, err)
	var bare map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &bare))
	assert.Nil(t, bare["category_id"])
	assert.Equal(t, []interface{}{}, bare["category_ids"])
}
