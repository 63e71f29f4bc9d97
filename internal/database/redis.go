package database

import (
	"context"
	"fmt"
	"time"

	"github.com/radiusdt/vector-bandit/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisDB holds the client for the spend counters. Traffic is a thin
// stream of pipelined increments plus occasional point reads, so the
// pool stays small and commands time out fast rather than queue.
type RedisDB struct {
	Client *redis.Client
	logger *zap.Logger
}

// NewRedisDB connects the spend counter store.
func NewRedisDB(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisDB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect spend counter store: %w", err)
	}

	logger.Info("spend counter store connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
	)

	return &RedisDB{
		Client: client,
		logger: logger,
	}, nil
}

// Close closes the spend counter store connection.
func (r *RedisDB) Close() error {
	if r.Client != nil {
		r.logger.Info("spend counter store closed")
		return r.Client.Close()
	}
	return nil
}

// Health reports whether the spend counter store is reachable.
func (r *RedisDB) Health(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
