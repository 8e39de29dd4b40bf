package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, client
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectAfterLimit", func(t *testing.T) {
		_, client := setupRedis(t)
		l := NewSlidingWindowLimiter(client, 3, time.Minute)

		for i := 0; i < 3; i++ {
			allowed, err := l.Allow(ctx, "bid:u-1")
			require.NoError(t, err)
			assert.True(t, allowed, "hit %d", i)
		}

		allowed, err := l.Allow(ctx, "bid:u-1")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		_, client := setupRedis(t)
		l := NewSlidingWindowLimiter(client, 1, time.Minute)

		allowed, _ := l.Allow(ctx, "bid:u-1")
		assert.True(t, allowed)
		allowed, _ = l.Allow(ctx, "bid:u-1")
		assert.False(t, allowed)
		allowed, _ = l.Allow(ctx, "bid:u-2")
		assert.True(t, allowed)
	})

	t.Run("WindowSlides", func(t *testing.T) {
		_, client := setupRedis(t)
		l := NewSlidingWindowLimiter(client, 1, 50*time.Millisecond)

		allowed, _ := l.Allow(ctx, "k")
		assert.True(t, allowed)
		allowed, _ = l.Allow(ctx, "k")
		assert.False(t, allowed)

		time.Sleep(60 * time.Millisecond)
		allowed, _ = l.Allow(ctx, "k")
		assert.True(t, allowed)
	})

	t.Run("RedisDown", func(t *testing.T) {
		mr, client := setupRedis(t)
		l := NewSlidingWindowLimiter(client, 1, time.Minute)
		mr.Close()

		_, err := l.Allow(ctx, "k")
		assert.Error(t, err)
	})
}

func TestTokenBucketLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewTokenBucketLimiter(rate.Every(time.Hour), 2)

	for i := 0; i < 2; i++ {
		allowed, err := l.Allow(ctx, "u-1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow(ctx, "u-1")
	assert.False(t, allowed)

	allowed, _ = l.Allow(ctx, "u-2")
	assert.True(t, allowed)

	allowed, _ = l.AllowN(ctx, "u-3", 3)
	assert.False(t, allowed)
}

func TestRateLimiterInterface(t *testing.T) {
	_, client := setupRedis(t)
	var _ RateLimiter = NewSlidingWindowLimiter(client, 1, time.Second)
	var _ RateLimiter = NewTokenBucketLimiter(1, 1)
}
