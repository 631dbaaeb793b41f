package locker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockTTL       = 5 * time.Second
	retryInterval = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still holds our token, so
// an expired lock reacquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// RedisLocker implements Locker with a per-key redis lock (SET NX PX),
// shared across all running instances.
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a redis-backed locker and verifies connectivity.
func NewRedisLocker(address, password string, db int) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLocker{client: client}, nil
}

// Acquire polls SET NX until the lock is held or ctx is done. The lock
// expires on its own after lockTTL, so a crashed holder cannot wedge a
// challenge's aggregate updates.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:aggregate:" + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{lockKey}, token).Err(); err != nil {
			slog.Warn("failed to release aggregate lock", "key", key, "error", err)
		}
	}

	return release, nil
}

// Ping verifies redis connectivity.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
