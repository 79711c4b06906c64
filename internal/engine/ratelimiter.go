package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter caps how many queries each data source receives per window,
// across all workers. Each query is a member of a Redis sorted set scored by
// its timestamp; a Lua script trims, counts and adds atomically.
type RateLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	window      time.Duration
	retryEvery  time.Duration
}

// KEYS[1] set, ARGV: now ms, window ms, limit, member, ttl seconds.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

if redis.call('ZCARD', key) >= limit then
    return 0
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('EXPIRE', key, ARGV[5])
return 1
`)

func NewRateLimiter(redisClient *redis.Client, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		window:      time.Minute,
		retryEvery:  250 * time.Millisecond,
	}
}

func rlKey(source string) string {
	return fmt.Sprintf("rl:source:%s", source)
}

// Allow reports whether one more query to the source fits in the current
// window. A limit of 0 or less disables limiting. Redis errors fail open
// unless ctx itself is done.
func (rl *RateLimiter) Allow(ctx context.Context, source string, limit int) bool {
	if limit <= 0 {
		return true
	}

	ttl := int64(rl.window.Seconds()) + 1
	result, err := rl.script.Run(ctx, rl.redisClient, []string{rlKey(source)},
		time.Now().UnixMilli(), rl.window.Milliseconds(), limit, uuid.NewString(), ttl,
	).Int64()
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		rl.logger.Error("rate limiter script failed", "source", source, "error", err)
		return true
	}

	if result == 0 {
		rl.logger.Debug("rate limited", "source", source, "limit", limit)
		return false
	}
	return true
}

// Wait blocks until the source admits a query or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, source string, limit int) error {
	ticker := time.NewTicker(rl.retryEvery)
	defer ticker.Stop()

	for !rl.Allow(ctx, source, limit) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s rate limit: %w", source, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
