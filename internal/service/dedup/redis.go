package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisGuard keys dedup state in Redis with a TTL, surviving restarts
// and shared across replicas. Drop-in replacement for MemoryGuard.
type RedisGuard struct {
	client *redis.Client
	window time.Duration
}

func NewRedisGuard(url string, window time.Duration) (*RedisGuard, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisGuard{client: client, window: window}, nil
}

func (g *RedisGuard) Accept(eventType, userID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := "dedup:" + eventType + ":" + userID
	ok, err := g.client.SetNX(ctx, key, time.Now().Unix(), g.window).Result()
	if err != nil {
		// Fail open: a broken guard should not block event delivery.
		log.Warn().Err(err).Str("key", key).Msg("dedup check failed, accepting event")
		return true
	}
	return ok
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
