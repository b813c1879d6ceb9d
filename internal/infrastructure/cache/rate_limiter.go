package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "gl:ratelimit:"

// RateDecision is the outcome of one rate limit check
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// RedisRateLimiter is a fixed-window limiter shared by every instance. Each window is
// one counter key created by INCR and expired with the window.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window
func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RedisRateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, logger: logger}
}

// Allow counts one request for key. A Redis error returns the error with an allowing
// decision so callers can fail open.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (RateDecision, error) {
	now := time.Now()
	windowStart := now.Truncate(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, windowStart.Unix())

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, l.window)
		return nil
	})

	decision := RateDecision{
		Allowed:    true,
		Limit:      l.limit,
		Remaining:  l.limit,
		ResetAfter: windowStart.Add(l.window).Sub(now),
	}
	if err != nil {
		l.logger.Warn("Rate limit check failed, allowing request", zap.String("key", key), zap.Error(err))
		return decision, err
	}

	count := int(incr.Val())
	decision.Allowed = count <= l.limit
	decision.Remaining = max(l.limit-count, 0)
	return decision, nil
}
