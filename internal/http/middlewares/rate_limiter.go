package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	redisclient "github.com/salesops/leadhub/internal/redis"
)

// RateLimiter enforces a fixed window per derived key, with the
// counters in redis so the limit holds across replicas. Redis being
// unreachable fails open: availability of login beats strictness of
// the limit.
type RateLimiter struct {
	rdb    *redisclient.Client
	log    *slog.Logger
	limit  int64
	window time.Duration
}

func NewRateLimiter(rdb *redisclient.Client, log *slog.Logger, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		log:    log,
		limit:  limit,
		window: window,
	}
}

// RateLimiterMiddleware returns a gin.HandlerFunc that enforces the
// limit for a derived key.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		cctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		count, err := rl.rdb.IncrWindow(cctx, "ratelimit:"+key, rl.window)

		if err != nil {
			rl.log.Warn("rate limiter unavailable, allowing request", "err", err)
			c.Next()
			return
		}

		if count > rl.limit {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "rate_limited",
					"message": "Too many requests. Please try again shortly.",
				},
			})
			return
		}

		c.Next()
	}
}

// KeyByIP rate limits unauthenticated endpoints by client address.
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	// Normalize ipv6 zone
	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
