package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todos/internal/application/services"
	"github.com/taskmaster/todos/internal/infrastructure/config"
	"github.com/taskmaster/todos/internal/infrastructure/database"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "todos", Version: "test"},
		JWT: config.JWTConfig{
			Secret:    "test-secret",
			ExpiresIn: time.Hour,
			Issuer:    "todos-test",
		},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "*",
			RateLimitRequests:  1000,
			RateLimitWindow:    time.Minute,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	srv, err := New(testConfig(), database.Wrap(sqlx.NewDb(conn, "postgres")), logger.NewNop())
	require.NoError(t, err)
	return srv, mock
}

func signToken(t *testing.T, userID uuid.UUID, secret string) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &services.Claims{
		UserID: userID.String(),
		Email:  "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "todos-test",
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAuthMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", `{"message":"Missing authorization header"}`},
		{"wrong scheme", "Basic abc", `{"message":"Invalid authorization header format"}`},
		{"bad signature", "Bearer " + signToken(t, uuid.New(), "other-secret"), `{"message":"Invalid token"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := serve(srv, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestListTodosScopedToTokenUser(t *testing.T) {
	srv, mock := newTestServer(t)
	userID := uuid.New()

	columns := []string{"id", "title", "content", "completed", "image_url", "reminder", "location",
		"urgency", "creator_id", "created_at", "updated_at", "category_ids"}
	mock.ExpectQuery(`SELECT .* FROM todos t LEFT JOIN todo_categories tc ON tc.todo_id = t.id WHERE t.creator_id = \$1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(columns))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/todos", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID, "test-secret"))

	rec := serve(srv, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())

	metrics := serve(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `http_requests_total{method="GET",path="/api/v1/todos",status="200"} 1`)
}

func TestNotFoundTodoMapsTo404(t *testing.T) {
	srv, mock := newTestServer(t)
	userID, todoID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM todo_categories WHERE todo_id = \$1`).
		WithArgs(todoID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM todos WHERE id = \$1 AND creator_id = \$2`).
		WithArgs(todoID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/todos/"+todoID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, userID, "test-secret"))

	rec := serve(srv, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"todo not found"}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
