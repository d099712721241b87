package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/taskmaster/todos/docs"
	httpHandlers "github.com/taskmaster/todos/internal/adapters/http"
	"github.com/taskmaster/todos/internal/adapters/repository"
	"github.com/taskmaster/todos/internal/application/services"
	"github.com/taskmaster/todos/internal/infrastructure/config"
	"github.com/taskmaster/todos/internal/infrastructure/database"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
	"github.com/taskmaster/todos/internal/infrastructure/metrics"
	"github.com/taskmaster/todos/internal/infrastructure/ratelimit"
	"github.com/taskmaster/todos/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	db       *database.DB
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

type handlers struct {
	auth       *httpHandlers.AuthHandler
	todo       *httpHandlers.TodoHandler
	category   *httpHandlers.CategoryHandler
	profile    *httpHandlers.ProfileHandler
	authorizer ports.AuthService
}

// New creates a new server instance
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = httpHandlers.NewValidator()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		db:       db,
		registry: registry,
		metrics:  m,
	}

	if cfg.Redis.Enabled {
		client, err := ratelimit.NewRedisClient(cfg.Redis)
		if err != nil {
			appLogger.Warnw("Redis unavailable, using in-memory rate limiter", "error", err.Error())
		} else {
			server.redis = client
		}
	}

	// Initialize repositories
	todoRepo := repository.NewTodoRepository(db.DB, appLogger, m)
	categoryRepo := repository.NewCategoryRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	authRepo := repository.NewAuthRepository(db.DB, appLogger)

	// Initialize services
	todoService := services.NewTodoService(todoRepo, appLogger, m)
	categoryService := services.NewCategoryService(categoryRepo, appLogger, m)
	profileService := services.NewProfileService(profileRepo, notificationRepo, appLogger)
	authService := services.NewAuthService(profileRepo, authRepo, categoryService, cfg.JWT, appLogger)

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	// Setup routes
	server.setupRoutes(handlers{
		auth:       httpHandlers.NewAuthHandler(authService, appLogger),
		todo:       httpHandlers.NewTodoHandler(todoService, appLogger),
		category:   httpHandlers.NewCategoryHandler(categoryService, appLogger),
		profile:    httpHandlers.NewProfileHandler(profileService, appLogger),
		authorizer: authService,
	})

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			s.logger.WithRequestID(values.RequestID).LogHTTPRequest(
				values.Method,
				values.URI,
				values.UserAgent,
				values.RemoteIP,
				values.Status,
				float64(values.Latency.Nanoseconds())/1000000,
				values.Error,
			)
			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))

	// Rate limiting middleware
	s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: s.rateLimiterStore(),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusForbidden, httpHandlers.ErrorResponse{Message: "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, httpHandlers.ErrorResponse{Message: "rate limit exceeded"})
		},
	}))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	// Timeout middleware
	s.echo.Use(middleware.ContextTimeout(30 * time.Second))
}

// rateLimiterStore shares counters through redis when it is connected
func (s *Server) rateLimiterStore() middleware.RateLimiterStore {
	sec := s.config.Security
	if s.redis != nil {
		return ratelimit.NewRedisStore(s.redis, sec.RateLimitRequests, sec.RateLimitWindow, s.logger)
	}
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(sec.RateLimitRequests) / sec.RateLimitWindow.Seconds()),
		Burst:     sec.RateLimitRequests,
		ExpiresIn: sec.RateLimitWindow,
	})
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h handlers) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	auth := s.authMiddleware(h.authorizer)

	// Auth routes (public)
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", h.auth.Register)
	authGroup.POST("/login", h.auth.Login)
	authGroup.POST("/refresh", h.auth.RefreshToken)
	authGroup.POST("/logout", h.auth.Logout, auth)

	// Todo routes (authenticated)
	todoGroup := v1.Group("/todos", auth)
	todoGroup.GET("", h.todo.ListTodos)
	todoGroup.POST("", h.todo.CreateTodo)
	todoGroup.GET("/:id", h.todo.GetTodo)
	todoGroup.PATCH("/:id", h.todo.UpdateTodo)
	todoGroup.PUT("/:id", h.todo.UpdateTodo)
	todoGroup.DELETE("/:id", h.todo.DeleteTodo)

	// Category routes (authenticated)
	categoryGroup := v1.Group("/categories", auth)
	categoryGroup.GET("", h.category.ListCategories)
	categoryGroup.POST("", h.category.CreateCategory)
	categoryGroup.POST("/defaults", h.category.SetupDefaults)
	categoryGroup.PATCH("/:id", h.category.UpdateCategory)
	categoryGroup.DELETE("/:id", h.category.DeleteCategory)

	// Profile and notification routes (authenticated)
	v1.GET("/profiles/search", h.profile.SearchProfiles, auth)
	notificationGroup := v1.Group("/notifications", auth)
	notificationGroup.GET("", h.profile.ListNotifications)
	notificationGroup.POST("/:id/read", h.profile.MarkNotificationRead)
}

// setupMetrics records request metrics and exposes /metrics
func (s *Server) setupMetrics() {
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			s.metrics.RequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			s.metrics.RequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	// Database health check
	if err := s.db.HealthCheck(); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(c.Request().Context()).Err(); err != nil {
			// the limiter fails open, so redis trouble does not fail the check
			checks["redis"] = map[string]interface{}{"status": "degraded", "error": err.Error()}
		} else {
			checks["redis"] = map[string]interface{}{"status": "ok"}
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.Infow("Starting server", "address", address)

	srv := &http.Server{
		Addr:         address,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	return s.echo.StartServer(srv)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	err := s.echo.Shutdown(ctx)
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			s.logger.Warnw("Failed to close redis client", "error", cerr.Error())
		}
	}
	return err
}

// customErrorHandler renders every error as {"message": ...}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else {
			code = httpHandlers.StatusFor(err)
			msg = err.Error()
			if code == http.StatusInternalServerError {
				msg = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err.Error(), "path", c.Request().URL.Path)
		}

		if s, ok := msg.(string); ok {
			msg = httpHandlers.ErrorResponse{Message: s}
		}

		// Send response
		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, msg)
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err.Error())
			}
		}
	}
}
