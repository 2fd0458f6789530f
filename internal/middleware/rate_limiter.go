package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/config"
)

// RateLimiter applies a fixed-window counter per client IP, backed by Redis.
func RateLimiter(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	window := time.Second
	return func(c *gin.Context) {
		if !cfg.RateLimit.Enabled {
			c.Next()
			return
		}

		ctx := context.Background()
		key := fmt.Sprintf("rate_limit:%s", c.ClientIP())

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		limit := cfg.RateLimit.RequestsPerSecond + cfg.RateLimit.Burst
		if count > int64(limit) {
			err := apperror.New(apperror.KindValidation, "rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperror.ErrorEnvelope(err))
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
		c.Writer.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limit-int(count)))
		c.Writer.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

		c.Next()
	}
}
