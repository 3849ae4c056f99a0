package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisDedup struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDedup(rdb *redis.Client, ttl time.Duration) *RedisDedup {
	return &RedisDedup{rdb: rdb, ttl: ttl}
}

func dedupKey(messageID, status string) string {
	return "webhook:" + messageID + ":" + status
}

func (c *RedisDedup) Seen(ctx context.Context, messageID, status string) (bool, error) {
	_, err := c.rdb.Get(ctx, dedupKey(messageID, status)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisDedup) Mark(ctx context.Context, messageID, status string) error {
	return c.rdb.Set(ctx, dedupKey(messageID, status), "1", c.ttl).Err()
}
