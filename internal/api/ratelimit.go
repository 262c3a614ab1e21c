package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/clock"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/response"
)

var ErrRateLimited = apperror.New(http.StatusTooManyRequests, apperror.ReasonRateLimited, "too many booking requests, please slow down")

type RateLimitOptions struct {
	Limit  int
	Window time.Duration
	Prefix string
}

// RateLimiter is a fixed-window counter per caller stored in Redis.
type RateLimiter struct {
	rdb    redis.Cmdable
	opts   RateLimitOptions
	clock  clock.Clock
	logger *slog.Logger
}

func NewRateLimiter(rdb redis.Cmdable, opts RateLimitOptions, clk clock.Clock, logger *slog.Logger) *RateLimiter {
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = "rl:bookings"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{rdb: rdb, opts: opts, clock: clk, logger: logger}
}

// Allow counts one request for subject and reports whether it fits in the
// current window. retryAfter is the time left in the window when denied.
func (l *RateLimiter) Allow(ctx context.Context, subject string) (allowed bool, retryAfter time.Duration, err error) {
	now := l.clock.Now()
	windowStart := now.Truncate(l.opts.Window)
	key := fmt.Sprintf("%s:%s:%d", l.opts.Prefix, subject, windowStart.Unix())

	var incr *redis.IntCmd
	_, err = l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, l.opts.Window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() > int64(l.opts.Limit) {
		return false, windowStart.Add(l.opts.Window).Sub(now), nil
	}
	return true, 0, nil
}

// Middleware limits requests per authenticated user, falling back to the
// client IP. Redis failures let requests through.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := auth.GetUserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		allowed, retryAfter, err := l.Allow(c.Request.Context(), subject)
		if err != nil {
			l.logger.WarnContext(c.Request.Context(), "rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.opts.Limit))
		if !allowed {
			secs := int((retryAfter + time.Second - 1) / time.Second)
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(ErrRateLimited.Code, response.ErrorResponse{
				Error:  ErrRateLimited.Message,
				Reason: ErrRateLimited.Reason,
			})
			return
		}
		c.Next()
	}
}

// passThrough is used when rate limiting is disabled or Redis is not configured.
func passThrough(c *gin.Context) { c.Next() }
