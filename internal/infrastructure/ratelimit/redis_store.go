// Package ratelimit holds the shared rate limiter store used when the API
// runs as more than one instance.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskmaster/todos/internal/infrastructure/config"
	"github.com/taskmaster/todos/internal/infrastructure/logger"
)

const opTimeout = 500 * time.Millisecond

// RedisStore is a fixed-window limiter satisfying echo's RateLimiterStore.
// Keys look like rl:<window_seconds>:<identifier>. Redis errors let the
// request through.
type RedisStore struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *logger.Logger
}

// NewRedisClient connects and pings with a short timeout
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client, limit int, window time.Duration, log *logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		limit:  int64(limit),
		window: window,
		logger: log.WithComponent("ratelimit"),
	}
}

// Allow counts one request for identifier in the current window
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := "rl:" + strconv.FormatInt(int64(s.window.Seconds()), 10) + ":" + identifier

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.logger.Warnw("Rate limiter unavailable, allowing request", "error", err.Error())
		return true, nil
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, s.window).Err(); err != nil {
			s.logger.Warnw("Failed to set rate limit window", "key", key, "error", err.Error())
		}
	}

	return count <= s.limit, nil
}
