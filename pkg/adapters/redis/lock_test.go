package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepmesh/pkg/adapters/redis"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunLockerContract(t, redis.NewLocker(client, "test:"))
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "/out", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:/out"), "Lock key should be set in Redis")
	assert.Equal(t, 5*time.Second, mr.TTL("test:lock:/out"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:/out"), "Lock key should be removed after unlock")
}

func TestRedisLocker_StaleUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "/out", time.Second)
	require.NoError(t, err)

	// The lock expires and another holder takes it.
	mr.FastForward(2 * time.Second)
	other, err := locker.Lock(ctx, "/out", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists(redis.DefaultPrefix+"lock:/out"), "stale unlock must not release the new holder")
	require.NoError(t, other(ctx))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:/out"))
}

func TestRedisLocker_Renewal(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "/out", 300*time.Millisecond)
	require.NoError(t, err)

	// Simulate the lock being about to expire during a long run.
	mr.SetTTL("test:lock:/out", 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return mr.TTL("test:lock:/out") == 300*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond, "a held lock is extended")

	require.NoError(t, unlock(ctx))
	time.Sleep(250 * time.Millisecond)
	assert.False(t, mr.Exists("test:lock:/out"), "released locks are not renewed")
}

func TestRedisLocker_RenewalStopsWhenLost(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "/out", 300*time.Millisecond)
	require.NoError(t, err)

	// Another holder took over after an expiry.
	require.NoError(t, mr.Set("test:lock:/out", "someone-else"))
	mr.SetTTL("test:lock:/out", time.Minute)
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, time.Minute, mr.TTL("test:lock:/out"), "a lock held by another token is left alone")

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("test:lock:/out"))
}
