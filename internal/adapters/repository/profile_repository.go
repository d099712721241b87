package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/ports"
)

const (
	profileColumns = "id, username, email, password_hash, avatar_url, created_at, updated_at"

	uniqueViolation = "23505"
)

// ProfileRepositoryImpl implements the ProfileRepository interface
type ProfileRepositoryImpl struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sqlx.DB) ports.ProfileRepository {
	return &ProfileRepositoryImpl{db: db}
}

func (r *ProfileRepositoryImpl) Create(ctx context.Context, profile *entities.Profile) error {
	query := `
		INSERT INTO profiles (id, username, email, password_hash, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		profile.ID, profile.Username, profile.Email, profile.PasswordHash, profile.AvatarURL,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return entities.ErrProfileExists
		}
		return fmt.Errorf("create profile: %w", err)
	}

	return nil
}

func (r *ProfileRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Profile, error) {
	return r.getBy(ctx, "id", id)
}

func (r *ProfileRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.Profile, error) {
	return r.getBy(ctx, "email", strings.ToLower(email))
}

func (r *ProfileRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entities.Profile, error) {
	return r.getBy(ctx, "username", username)
}

func (r *ProfileRepositoryImpl) getBy(ctx context.Context, column string, value interface{}) (*entities.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE ` + column + ` = $1`

	var profile entities.Profile
	if err := r.db.GetContext(ctx, &profile, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile by %s: %w", column, err)
	}

	return &profile, nil
}

// Search matches usernames case-insensitively
func (r *ProfileRepositoryImpl) Search(ctx context.Context, query string, limit int) ([]*entities.Profile, error) {
	sqlQuery, args, err := psql.Select(strings.Split(profileColumns, ", ")...).
		From("profiles").
		Where("username ILIKE ?", "%"+escapeLike(query)+"%").
		OrderBy("username ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search profiles: %w", err)
	}

	profiles := []*entities.Profile{}
	if err := r.db.SelectContext(ctx, &profiles, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}

	return profiles, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
