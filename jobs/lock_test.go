package jobs

import (
	"context"
	"testing"
	"time"

	"facility-backend/apperrors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisLocker(t *testing.T) (*miniredis.Miniredis, *RedisLocker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisLocker(client)
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	mr, l := setupRedisLocker(t)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("k"))
	assert.Equal(t, time.Minute, mr.TTL("k"))

	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("k"))

	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)
}

func TestRedisLocker_ExpiredLeaseDoesNotReleaseNewHolder(t *testing.T) {
	mr, l := setupRedisLocker(t)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	_, err = l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, mr.Exists("k"))
}

func TestRedisLocker_ConnectionError(t *testing.T) {
	mr, l := setupRedisLocker(t)
	mr.Close()

	_, err := l.Acquire(context.Background(), "k", time.Minute)
	assert.True(t, apperrors.IsPersistence(err))
}

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	now = now.Add(2 * time.Minute)
	fresh, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, apperrors.ErrBusy)

	require.NoError(t, fresh.Release(ctx))
	_, err = l.Acquire(ctx, "k", time.Minute)
	assert.NoError(t, err)
}
