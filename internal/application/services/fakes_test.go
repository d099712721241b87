package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/identity"
	"github.com/taskmaster/todos/internal/ports"
)

type fakeTodoRepo struct {
	created []ports.CreateTodoInput
	patches []ports.TodoPatch
	err     error
}

func (f *fakeTodoRepo) Create(ctx context.Context, input ports.CreateTodoInput) (*entities.Todo, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, input)
	return &entities.Todo{
		ID:          uuid.New(),
		Title:       input.Title,
		Urgency:     input.Urgency,
		CategoryIDs: input.CategoryIDs.Dedup(),
		CreatorID:   userID,
		CreatedAt:   time.Now(),
	}, nil
}

func (f *fakeTodoRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Todo, error) {
	return nil, entities.ErrTodoNotFound
}

func (f *fakeTodoRepo) GetAll(ctx context.Context) ([]*entities.Todo, error) {
	return []*entities.Todo{}, f.err
}

func (f *fakeTodoRepo) Update(ctx context.Context, id uuid.UUID, patch ports.TodoPatch) (*entities.Todo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.patches = append(f.patches, patch)
	todo := &entities.Todo{ID: id, Title: "stored"}
	if patch.CategoryIDs != nil {
		todo.CategoryIDs = *patch.CategoryIDs
	}
	return todo, nil
}

func (f *fakeTodoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return f.err
}

type fakeCategoryRepo struct {
	mu        sync.Mutex
	existing  int
	created   []string
	failNames map[string]bool
	countErr  error
}

func (f *fakeCategoryRepo) Create(ctx context.Context, name, color string) (*entities.Category, error) {
	userID, err := identity.UserID(ctx)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNames[name] {
		return nil, errors.New("insert failed")
	}
	f.created = append(f.created, name)
	return &entities.Category{ID: uuid.New(), Name: name, Color: color, UserID: userID}, nil
}

func (f *fakeCategoryRepo) GetAll(ctx context.Context) ([]*entities.Category, error) {
	return []*entities.Category{}, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, id uuid.UUID, patch ports.CategoryPatch) (*entities.Category, error) {
	return nil, entities.ErrCategoryNotFound
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (f *fakeCategoryRepo) Count(ctx context.Context) (int, error) {
	if _, err := identity.UserID(ctx); err != nil {
		return 0, err
	}
	return f.existing + len(f.created), f.countErr
}

type fakeProfileRepo struct {
	byEmail map[string]*entities.Profile
	byID    map[uuid.UUID]*entities.Profile
	search  []*entities.Profile
	lastQ   string
	lastLim int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{byEmail: map[string]*entities.Profile{}, byID: map[uuid.UUID]*entities.Profile{}}
}

func (f *fakeProfileRepo) Create(ctx context.Context, profile *entities.Profile) error {
	if _, ok := f.byEmail[profile.Email]; ok {
		return entities.ErrProfileExists
	}
	stored := *profile
	f.byEmail[profile.Email] = &stored
	f.byID[profile.ID] = &stored
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Profile, error) {
	if p, ok := f.byID[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, entities.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*entities.Profile, error) {
	if p, ok := f.byEmail[email]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, entities.ErrProfileNotFound
}

func (f *fakeProfileRepo) GetByUsername(ctx context.Context, username string) (*entities.Profile, error) {
	for _, p := range f.byEmail {
		if p.Username == username {
			clone := *p
			return &clone, nil
		}
	}
	return nil, entities.ErrProfileNotFound
}

func (f *fakeProfileRepo) Search(ctx context.Context, query string, limit int) ([]*entities.Profile, error) {
	f.lastQ, f.lastLim = query, limit
	return f.search, nil
}

type fakeAuthRepo struct {
	tokens map[string]*ports.RefreshToken
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{tokens: map[string]*ports.RefreshToken{}}
}

func (f *fakeAuthRepo) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.tokens[tokenHash] = &ports.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeAuthRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*ports.RefreshToken, error) {
	if t, ok := f.tokens[tokenHash]; ok {
		return t, nil
	}
	return nil, entities.ErrInvalidCredentials
}

func (f *fakeAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	if t, ok := f.tokens[tokenHash]; ok {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (f *fakeAuthRepo) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeAuthRepo) CleanupExpiredTokens(ctx context.Context) error {
	return nil
}
