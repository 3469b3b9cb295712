package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/siga-ar/siga-api/pkg/config"
	appErrors "github.com/siga-ar/siga-api/pkg/errors"
	"github.com/siga-ar/siga-api/pkg/response"
)

// RateLimit bounds requests per caller using a fixed window counter in
// Redis. Authenticated callers are keyed by user id, anonymous ones by
// client IP. When Redis is unavailable the request passes through; rate
// limiting is protective, not a correctness rule.
func RateLimit(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if !cfg.Enabled || client == nil || cfg.Limit <= 0 || cfg.Window <= 0 {
			c.Next()
			return
		}

		caller := c.ClientIP()
		if claims := Claims(c); claims != nil {
			caller = fmt.Sprintf("u:%d", claims.UserID)
		}
		window := time.Now().Unix() / int64(cfg.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", caller, window)

		ctx := c.Request.Context()
		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, cfg.Window).Err(); err != nil {
				logger.Warn("rate limiter expire failed", zap.Error(err))
			}
		}

		if count > int64(cfg.Limit) {
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}
