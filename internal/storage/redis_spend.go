package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSpendTracker keeps daily spend counters per item group using
// Redis atomic increments. Keys expire after 25 hours so yesterday's
// counters survive clock skew around midnight.
type RedisSpendTracker struct {
	client *redis.Client
}

// NewRedisSpendTracker creates a Redis-backed spend tracker.
func NewRedisSpendTracker(client *redis.Client) *RedisSpendTracker {
	return &RedisSpendTracker{client: client}
}

func spendKey(groupID, date string) string {
	return fmt.Sprintf("spend:%s:%s", groupID, date)
}

// RecordSpend adds the amount to the group's counter for the date.
func (t *RedisSpendTracker) RecordSpend(ctx context.Context, groupID, date string, amount float64) error {
	key := spendKey(groupID, date)

	pipe := t.client.Pipeline()
	pipe.IncrByFloat(ctx, key, amount)
	pipe.Expire(ctx, key, 25*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}
	return nil
}

// DailySpend returns the group's recorded spend for the date, 0 when
// nothing has been recorded.
func (t *RedisSpendTracker) DailySpend(ctx context.Context, groupID, date string) (float64, error) {
	val, err := t.client.Get(ctx, spendKey(groupID, date)).Float64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read spend: %w", err)
	}
	return val, nil
}
