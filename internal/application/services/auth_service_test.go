package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/config"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

func newTestAuthService() (*AuthService, *fakeProfileRepo, *fakeAuthRepo, *fakeCategoryRepo) {
	profiles := newFakeProfileRepo()
	tokens := newFakeAuthRepo()
	categories := &fakeCategoryRepo{}
	jwtCfg := config.JWTConfig{
		Secret:           "test-secret-that-is-long-enough",
		ExpiresIn:        time.Hour,
		RefreshExpiresIn: 24 * time.Hour,
		Issuer:           "todos-api",
	}
	seeder := NewCategoryService(categories, logger.NewNop(), nil)
	return NewAuthService(profiles, tokens, seeder, jwtCfg, logger.NewNop()), profiles, tokens, categories
}

func TestAuthServiceRegisterAndLogin(t *testing.T) {
	svc, _, _, categories := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, ports.RegisterRequest{Email: "Ada@Example.com", Username: "ada", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "ada@example.com", resp.Profile.Email)
	assert.Empty(t, resp.Profile.PasswordHash)
	assert.Len(t, categories.created, len(DefaultCategories), "registration seeds default categories")

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Profile.ID.String(), claims.UserID)

	_, err = svc.Register(ctx, ports.RegisterRequest{Email: "ada@example.com", Username: "other", Password: "correct-horse"})
	assert.ErrorIs(t, err, entities.ErrProfileExists)

	_, err = svc.Login(ctx, ports.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)

	_, err = svc.Login(ctx, ports.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)

	login, err := svc.Login(ctx, ports.LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, login.RefreshToken)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, _, tokens, _ := newTestAuthService()
	ctx := context.Background()

	resp, err := svc.Register(ctx, ports.RegisterRequest{Email: "ada@example.com", Username: "ada", Password: "correct-horse"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)
	assert.True(t, tokens.tokens[hashToken(resp.RefreshToken)].IsRevoked())

	_, err = svc.RefreshToken(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials, "old token cannot be reused")

	require.NoError(t, svc.Logout(ctx, refreshed.Profile.ID))
	_, err = svc.RefreshToken(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, entities.ErrInvalidCredentials)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _, _, _ := newTestAuthService()
	other := NewAuthService(newFakeProfileRepo(), newFakeAuthRepo(), nil, config.JWTConfig{
		Secret: "a-completely-different-secret", ExpiresIn: time.Hour, Issuer: "todos-api",
	}, logger.NewNop())

	token, err := other.generateAccessToken(&entities.Profile{ID: uuid.New(), Email: "x@example.com"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
