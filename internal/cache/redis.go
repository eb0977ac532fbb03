package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/interaktiv/kyra-assist/internal/platform/logger"
)

// Redis backs SharedCache with a Redis instance so multiple backend
// workers share one token and one set of prompt ids. Same relaxed
// consistency contract as the in-memory implementation.
type Redis struct {
	log     *logger.Logger
	client  *redis.Client
	timeout time.Duration
}

func NewRedis(log *logger.Logger, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{
		log:     log.With("component", "RedisCache"),
		client:  client,
		timeout: 3 * time.Second,
	}, nil
}

func (r *Redis) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("cache get failed", "key", key, "error", err)
		}
		return "", false
	}
	return value, true
}

func (r *Redis) Set(key, value string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) Invalidate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.log.Warn("cache invalidate failed", "key", key, "error", err)
	}
}

func (r *Redis) Close() error { return r.client.Close() }
