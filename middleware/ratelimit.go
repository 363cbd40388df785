package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/ariebrainware/telemed-review/config"
	"github.com/ariebrainware/telemed-review/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	// Rate limiting defaults
	defaultRateLimit  = 10          // 10 calls
	defaultRateWindow = time.Minute // per minute
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// RateLimiter creates a rate limiting middleware keyed by account when
// the caller is authenticated and by client IP otherwise.
func RateLimiter(config RateLimitConfig) gin.HandlerFunc {
	if config.Limit == 0 {
		config.Limit = defaultRateLimit
	}
	if config.Window == 0 {
		config.Window = defaultRateWindow
	}

	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		key := rateLimitKey(endpoint, callerKey(c))

		allowed, err := checkRateLimit(c.Request.Context(), key, config.Limit, config.Window)
		if err != nil {
			// Redis trouble must not take the review API down with it.
			util.Log.WithError(err).WithField("key", key).Warn("rate limit check failed")
			c.Next()
			return
		}

		if !allowed {
			accountID, _ := GetAccountID(c)
			util.LogReviewEvent(util.ReviewEvent{
				EventType: util.EventRateLimitExceeded,
				AccountID: accountID,
				Message:   "rate limit exceeded on " + endpoint,
				Details:   map[string]interface{}{"ip": c.ClientIP()},
			})
			util.CallTooManyRequests(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: fmt.Errorf("rate limit exceeded"),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if id, ok := GetAccountID(c); ok {
		return fmt.Sprintf("account:%d", id)
	}
	return "ip:" + c.ClientIP()
}

func rateLimitKey(endpoint, caller string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, caller)
}

// checkRateLimit checks if a request is within rate limits
// Returns true if allowed, false if rate limit exceeded
func checkRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return true, nil
	}

	pipe := rdb.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incrCmd.Val() <= int64(limit), nil
}

