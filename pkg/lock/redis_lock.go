package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockFailed lock acquisition failed
	ErrLockFailed = errors.New("failed to acquire lock")
	// ErrLockNotHeld lock is not held
	ErrLockNotHeld = errors.New("lock not held")
)

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// RedisLock distributed lock based on Redis
type RedisLock struct {
	client redis.UniversalClient
	key    string
	value  string
	ttl    time.Duration
}

// NewRedisLock creates a new Redis lock. value identifies the holder and must be unique per acquisition.
func NewRedisLock(client redis.UniversalClient, key, value string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		value:  value,
		ttl:    ttl,
	}
}

// Key returns the Redis key guarded by this lock
func (l *RedisLock) Key() string {
	return l.key
}

// Lock acquires the lock
func (l *RedisLock) Lock(ctx context.Context) error {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return err
	}

	if !success {
		return ErrLockFailed
	}

	return nil
}

// TryLock tries to acquire the lock with retries
func (l *RedisLock) TryLock(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		err := l.Lock(ctx)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrLockFailed) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return ErrLockFailed
}

// Unlock releases the lock if this holder still owns it
func (l *RedisLock) Unlock(ctx context.Context) error {
	result, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		return err
	}

	if result == 0 {
		return ErrLockNotHeld
	}

	return nil
}

// IsHeld checks if the lock is held
func (l *RedisLock) IsHeld(ctx context.Context) (bool, error) {
	value, err := l.client.Get(ctx, l.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return value == l.value, nil
}

// Locker hands out short-lived locks under a common key prefix
type Locker struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewLocker creates a Locker. Acquisition retries maxRetries times, retryDelay apart.
func NewLocker(client redis.UniversalClient, prefix string, ttl time.Duration, maxRetries int, retryDelay time.Duration) *Locker {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Locker{
		client:     client,
		prefix:     prefix,
		ttl:        ttl,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Obtain acquires the lock for name, returning a handle the caller must Unlock
func (l *Locker) Obtain(ctx context.Context, name string) (*RedisLock, error) {
	lk := NewRedisLock(l.client, l.prefix+name, uuid.NewString(), l.ttl)
	if err := lk.TryLock(ctx, l.maxRetries, l.retryDelay); err != nil {
		return nil, err
	}
	return lk, nil
}
