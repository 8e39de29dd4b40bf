package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter rate limiter interface
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window_ms)
	return 1
end
return 0
`)

// SlidingWindowLimiter sliding window rate limiter using Redis, shared across instances
type SlidingWindowLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(client redis.UniversalClient, limit int, window time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow records one hit for key and reports whether it fits in the window
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixMilli()
	windowStart := now - l.window.Milliseconds()

	result, err := slidingWindowScript.Run(ctx, l.client,
		[]string{fmt.Sprintf("rate_limit:%s", key)},
		now,
		windowStart,
		l.limit,
		l.window.Milliseconds(),
		uuid.NewString(),
	).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

// TokenBucketLimiter in-process token bucket per key
type TokenBucketLimiter struct {
	rate     rate.Limit
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewTokenBucketLimiter creates a new token bucket rate limiter
func NewTokenBucketLimiter(r rate.Limit, b int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		rate:     r,
		burst:    b,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *TokenBucketLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// Allow checks if the request is allowed
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.get(key).Allow(), nil
}

// AllowN checks if n requests are allowed
func (l *TokenBucketLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	return l.get(key).AllowN(time.Now(), n), nil
}
