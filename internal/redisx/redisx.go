// Package redisx wraps go-redis/v9 client construction. Redis backs the
// rate limiter and is the only store of the current refresh token per user.
package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snapq/snapq-go/internal/config"
)

// Connect parses cfg.RedisURL and returns a ready client, verified with a
// bounded PING so startup fails fast instead of surfacing on first use.
func Connect(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.RedisPoolSize

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
