package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spidey000/sendit-discord-wallet-verif/internal/config"
)

// RedisClient wraps a Redis client with logging and error tracking.
type RedisClient struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedisConnection creates a new Redis connection.
//
// Parameters:
//
//	cfg: Redis configuration.
//	logger: Logger for connection events.
//
// Returns:
//
//	*RedisClient: The initialized client.
//	error: Error if connection fails.
func NewRedisConnection(cfg config.RedisConfig, logger *zap.Logger) (*RedisClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	rdb.AddHook(&RedisSentryHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")

	return &RedisClient{Client: rdb, logger: logger}, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() {
	if r.Client == nil {
		return
	}
	if err := r.Client.Close(); err != nil {
		r.logger.Warn("Error closing Redis client", zap.Error(err))
		return
	}
	r.logger.Info("Redis connection closed")
}

// HealthCheck verifies the Redis connection.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// Publish sends a message to a channel. Delivery is best-effort.
func (r *RedisClient) Publish(ctx context.Context, channel string, payload any) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Publish(ctx, channel, payload).Err()
}
