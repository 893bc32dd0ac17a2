package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ConnectRedisWithRetry returns a Redis client and a lock client, or nils when
// REDIS_ADDRESS is not set. Account code generation stays correct without Redis;
// the lock only cuts contention between replicas.
func ConnectRedisWithRetry(ctx context.Context, s *Settings, maxAttempts int) (*redis.Client, *redislock.Client, error) {
	if s.RedisAddress == "" {
		log.Printf("REDIS_ADDRESS not set; distributed locks disabled")
		return nil, nil, nil
	}

	var attempt int
	for {
		attempt++
		rdb := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddress,
			Password: "",
			DB:       0, // use default DB
			PoolSize: 100,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, s.RedisAddress)
			return rdb, redislock.New(rdb), nil
		}
		_ = rdb.Close()
		if maxAttempts > 0 && attempt >= maxAttempts {
			return nil, nil, fmt.Errorf("connect redis %s: %w", s.RedisAddress, err)
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, s.RedisAddress, err, sleep)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}
