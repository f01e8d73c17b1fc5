package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix     = "appgen:lock:"
	defaultLockTTL = 10 * time.Minute
)

// ErrLocked is returned when another process holds the lock
var ErrLocked = errors.New("generation already in progress")

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RunLock serializes generation runs across server instances sharing an
// output directory. Locks expire after the TTL if a holder dies.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock creates a new Redis-backed run lock
func NewRunLock(redisAddr string) (*RunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RunLock{
		client: client,
		ttl:    defaultLockTTL,
	}, nil
}

// Acquire takes the lock for key without waiting. The returned func releases
// it; releasing a lock that expired and was taken by someone else is a no-op.
func (l *RunLock) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	token := uuid.NewString()
	redisKey := lockPrefix + key

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, key)
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("failed to release lock: %w", err)
		}
		return nil
	}
	return release, nil
}

// Close closes the Redis connection
func (l *RunLock) Close() error {
	return l.client.Close()
}
