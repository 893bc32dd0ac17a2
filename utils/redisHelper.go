package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
)

var ErrLockNotObtained = errors.New("could not obtain lock")

// RedisLocker hands out short-lived distributed locks backed by redislock.
// The database remains the source of truth; the lock only reduces contention.
type RedisLocker struct {
	Client *redislock.Client
	Prefix string
	TTL    time.Duration
	Retry  redislock.RetryStrategy
}

func NewRedisLocker(client *redislock.Client) *RedisLocker {
	return &RedisLocker{
		Client: client,
		Prefix: "textile_ledger",
		TTL:    30 * time.Second,
		Retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100),
	}
}

// Obtain acquires key and returns the function that releases it.
func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(), error) {
	if l == nil || l.Client == nil {
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("%s:%s", l.Prefix, key)
	lock, err := l.Client.Obtain(ctx, lockKey, l.TTL, &redislock.Options{RetryStrategy: l.Retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockNotObtained, key)
	} else if err != nil {
		return nil, err
	}
	return func() {
		// release with a fresh context so a cancelled request still frees the key
		_ = lock.Release(context.Background())
	}, nil
}
