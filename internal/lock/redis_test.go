package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis starts an in-memory redis so no real server is needed.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := NewRedisLocker(client, 5*time.Second, 5*time.Millisecond)
	ctx := context.Background()
	key := TicketDayKey("attraction-1", "2030-01-01")

	unlock, err := r.Lock(ctx, key)
	require.NoError(t, err)

	locked, err := r.IsLocked(ctx, key)
	require.NoError(t, err)
	assert.True(t, locked)

	unlock()

	locked, err = r.IsLocked(ctx, key)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRedisLocker_WaitsForHolder(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := NewRedisLocker(client, 5*time.Second, 5*time.Millisecond)
	key := TicketDayKey("attraction-1", "2030-01-01")

	const workers = 10
	var mu sync.Mutex
	holders := 0
	overlap := false
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := r.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			holders++
			if holders > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.False(t, overlap, "two holders must never overlap")
}

func TestRedisLocker_ContextDeadline(t *testing.T) {
	client, _ := setupTestRedis(t)
	r := NewRedisLocker(client, 5*time.Second, 5*time.Millisecond)
	key := EngagementKey("attraction-1", "user-1")

	unlock, err := r.Lock(context.Background(), key)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = r.Lock(ctx, key)
	assert.True(t, errors.Is(err, ErrLockTimeout))
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewLock(t *testing.T) {
	client, mr := setupTestRedis(t)
	r := NewRedisLocker(client, time.Second, 5*time.Millisecond)
	ctx := context.Background()
	key := TicketDayKey("attraction-1", "2030-01-03")

	staleUnlock, err := r.Lock(ctx, key)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	freshUnlock, err := r.Lock(ctx, key)
	require.NoError(t, err)
	defer freshUnlock()

	staleUnlock()

	locked, err := r.IsLocked(ctx, key)
	require.NoError(t, err)
	assert.True(t, locked, "stale holder must not release the new lock")
}
