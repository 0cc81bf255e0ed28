package billing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniLocker(t *testing.T) *RedisLocker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client)
}

func TestRedisLockerExclusive(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	l := NewRedisLocker(client)

	release, ok, err := l.Acquire(ctx, runLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, runLockKey, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists(runLockKey))

	release2, ok, err := l.Acquire(ctx, runLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	release2()
}

func TestRedisLockerReleaseKeepsForeignLease(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	l := NewRedisLocker(client)

	release, ok, err := l.Acquire(ctx, runLockKey, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists(runLockKey))

	releaseOther, ok, err := l.Acquire(ctx, runLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release()
	assert.True(t, mr.Exists(runLockKey))

	releaseOther()
	assert.False(t, mr.Exists(runLockKey))
}

func TestRedisLockerReportsConnectionErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	_, ok, err := NewRedisLocker(client).Acquire(context.Background(), runLockKey, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
