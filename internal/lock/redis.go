package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisLockPrefix = "lock:"

// releaseScript deletes the key only while it still carries our token, so a
// holder whose TTL lapsed can never release a lock granted to someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares keyed locks between service instances using SETNX with a TTL.
type RedisLocker struct {
	Client        *redis.Client
	TTL           time.Duration
	RetryInterval time.Duration
}

func NewRedisLocker(client *redis.Client, ttl, retryInterval time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if retryInterval <= 0 {
		retryInterval = 15 * time.Millisecond
	}
	return &RedisLocker{Client: client, TTL: ttl, RetryInterval: retryInterval}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := redisLockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.Client.SetNX(ctx, redisKey, token, r.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w %s: %v", ErrLockTimeout, key, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(r.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-timer.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, r.Client, []string{redisKey}, token).Err()
		})
	}, nil
}

// IsLocked reports whether key is currently held by anyone.
func (r *RedisLocker) IsLocked(ctx context.Context, key string) (bool, error) {
	_, err := r.Client.Get(ctx, redisLockPrefix+key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
