package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		s.Close()
	})

	return s, client
}

func TestRedisLock(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicLockUnlock", func(t *testing.T) {
		_, client := setupRedis(t)
		lk := NewRedisLock(client, "cart_lock:c-1", "holder-1", time.Minute)

		require.NoError(t, lk.Lock(ctx))
		held, err := lk.IsHeld(ctx)
		require.NoError(t, err)
		assert.True(t, held)

		require.NoError(t, lk.Unlock(ctx))
		held, err = lk.IsHeld(ctx)
		require.NoError(t, err)
		assert.False(t, held)
	})

	t.Run("SecondHolderBlocked", func(t *testing.T) {
		_, client := setupRedis(t)
		first := NewRedisLock(client, "cart_lock:c-1", "holder-1", time.Minute)
		second := NewRedisLock(client, "cart_lock:c-1", "holder-2", time.Minute)

		require.NoError(t, first.Lock(ctx))
		assert.ErrorIs(t, second.Lock(ctx), ErrLockFailed)
		assert.ErrorIs(t, second.Unlock(ctx), ErrLockNotHeld)

		held, _ := first.IsHeld(ctx)
		assert.True(t, held)
	})

	t.Run("ExpiresAfterTTL", func(t *testing.T) {
		s, client := setupRedis(t)
		first := NewRedisLock(client, "k", "holder-1", time.Second)
		second := NewRedisLock(client, "k", "holder-2", time.Second)

		require.NoError(t, first.Lock(ctx))
		s.FastForward(2 * time.Second)
		assert.NoError(t, second.Lock(ctx))
		assert.ErrorIs(t, first.Unlock(ctx), ErrLockNotHeld)
	})

	t.Run("TryLockWaitsForRelease", func(t *testing.T) {
		_, client := setupRedis(t)
		first := NewRedisLock(client, "k", "holder-1", time.Minute)
		second := NewRedisLock(client, "k", "holder-2", time.Minute)
		require.NoError(t, first.Lock(ctx))

		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = first.Unlock(ctx)
		}()

		assert.NoError(t, second.TryLock(ctx, 20, 5*time.Millisecond))
	})

	t.Run("TryLockGivesUp", func(t *testing.T) {
		_, client := setupRedis(t)
		require.NoError(t, NewRedisLock(client, "k", "holder-1", time.Minute).Lock(ctx))

		err := NewRedisLock(client, "k", "holder-2", time.Minute).TryLock(ctx, 3, time.Millisecond)
		assert.ErrorIs(t, err, ErrLockFailed)
	})
}

func TestLocker(t *testing.T) {
	ctx := context.Background()
	_, client := setupRedis(t)
	locker := NewLocker(client, "cart_lock:", time.Second, 50, 2*time.Millisecond)

	lk, err := locker.Obtain(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "cart_lock:c-1", lk.Key())
	require.NoError(t, lk.Unlock(ctx))

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lk, err := locker.Obtain(ctx, "c-2")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, lk.Unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
}
