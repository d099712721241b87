// Package apiclient talks to the todos REST API. Client satisfies
// session.Backend so a session.Store can run against a remote server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/taskmaster/todos/internal/domain/entities"
	"github.com/taskmaster/todos/internal/infrastructure/config"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/ports"
)

// Error is a non-2xx response from the API
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client is a REST client for one authenticated user
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logger.Logger
}

// New creates a client from the client section of the configuration.
// BaseURL includes the version prefix, e.g. http://localhost:8080/api/v1.
func New(cfg config.ClientConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  log.WithComponent("apiclient"),
	}
}

// SetToken replaces the bearer token used for subsequent requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login exchanges credentials for tokens and keeps the access token
func (c *Client) Login(ctx context.Context, email, password string) (*ports.AuthResponse, error) {
	var resp ports.AuthResponse
	req := ports.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	c.token = resp.AccessToken
	return &resp, nil
}

func (c *Client) ListTodos(ctx context.Context) ([]*entities.Todo, error) {
	var todos []*entities.Todo
	if err := c.do(ctx, http.MethodGet, "/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

func (c *Client) GetTodo(ctx context.Context, id uuid.UUID) (*entities.Todo, error) {
	var todo entities.Todo
	if err := c.do(ctx, http.MethodGet, "/todos/"+id.String(), nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) CreateTodo(ctx context.Context, req ports.CreateTodoRequest) (*entities.Todo, error) {
	var todo entities.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo sends a PATCH containing only the fields set in req
func (c *Client) UpdateTodo(ctx context.Context, id uuid.UUID, req ports.UpdateTodoRequest) (*entities.Todo, error) {
	var todo entities.Todo
	if err := c.do(ctx, http.MethodPatch, "/todos/"+id.String(), req, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+id.String(), nil, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	var categories []*entities.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CreateCategory(ctx context.Context, req ports.CreateCategoryRequest) (*entities.Category, error) {
	var category entities.Category
	if err := c.do(ctx, http.MethodPost, "/categories", req, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id uuid.UUID, req ports.UpdateCategoryRequest) (*entities.Category, error) {
	var category entities.Category
	if err := c.do(ctx, http.MethodPatch, "/categories/"+id.String(), req, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+id.String(), nil, nil)
}

// SetupDefaultCategories asks the server to seed the starter categories
func (c *Client) SetupDefaultCategories(ctx context.Context) (bool, error) {
	var resp struct {
		Created bool `json:"created"`
	}
	if err := c.do(ctx, http.MethodPost, "/categories/defaults", nil, &resp); err != nil {
		return false, err
	}
	return resp.Created, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		c.logger.Debugw("API request failed", "method", method, "path", path, "status", apiErr.Status, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}
