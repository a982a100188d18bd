package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimitStore is the counter backend. Implemented by
// memorydb.RedisClient.
type RateLimitStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

type RateLimitMiddleware struct {
	store RateLimitStore
	rpm   int
	log   *logrus.Logger
}

func NewRateLimitMiddleware(store RateLimitStore, rpm int, log *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{store: store, rpm: rpm, log: log}
}

// Limit applies a fixed one-minute window per API key (falling back to
// client IP when no key is configured). Redis being down fails open: a
// throttle outage must not take the API with it.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.store == nil || m.rpm <= 0 {
			c.Next()
			return
		}

		subject := c.GetString("api_key")
		if subject == "" {
			subject = c.ClientIP()
		}
		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:%s:%d", subject, window)

		count, err := m.store.Incr(c.Request.Context(), key)
		if err != nil {
			m.log.WithError(err).Warn("rate limit counter unavailable, allowing request")
			c.Next()
			return
		}
		if count == 1 {
			if err := m.store.Expire(c.Request.Context(), key, time.Minute); err != nil {
				m.log.WithError(err).Warn("failed to set rate limit window expiry")
			}
		}

		if count > int64(m.rpm) {
			// Remaining window lifetime tells the caller when to retry
			retryAfter := int64(60)
			if ttl, err := m.store.TTL(c.Request.Context(), key); err == nil && ttl > 0 {
				retryAfter = int64(ttl / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.JSON(http.StatusTooManyRequests, errors.ErrorResponse{
				Error:   errors.ErrRateLimited.Code,
				Message: "Rate limit exceeded, slow down",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
