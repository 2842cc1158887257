package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache connects to the Redis server holding rate-limit counters.
// A failed ping is logged but not fatal; the app degrades to no rate
// limiting rather than refusing to start.
func SetupCache() {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	if pong, err := client.Ping(ctx).Result(); err != nil {
		log.Warnf("[Cache] connexion Redis impossible: %v", err)
	} else {
		log.Infof("[Cache] connecte a Redis: %s", pong)
	}
}

// GetClient returns the shared Redis client, connecting lazily.
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value under key for the given duration.
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get returns the value stored under key.
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Incr bumps a counter key and returns the new value, refreshing its
// expiration. Used for rate-limiting login link requests per email.
func Incr(key string, expiration time.Duration) (int64, error) {
	pipe := GetClient().TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Delete removes key from the cache.
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}
