package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T, ttl time.Duration) (*SyncLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSyncLock(client, ttl), mr
}

func TestSyncLockAcquireRelease(t *testing.T) {
	lock, _ := newTestLock(t, time.Minute)
	ctx := context.Background()
	key := CalendarSyncLockKey(2025)

	require.NoError(t, lock.Acquire(ctx, key))
	require.ErrorIs(t, lock.Acquire(ctx, key), ErrSyncInProgress)

	lock.Release(ctx, key)
	require.NoError(t, lock.Acquire(ctx, key))
}

func TestSyncLockKeysAreYearScoped(t *testing.T) {
	lock, _ := newTestLock(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, lock.Acquire(ctx, CalendarSyncLockKey(2025)))
	require.NoError(t, lock.Acquire(ctx, CalendarSyncLockKey(2026)))
}

func TestSyncLockExpires(t *testing.T) {
	lock, mr := newTestLock(t, time.Second)
	ctx := context.Background()
	key := CalendarSyncLockKey(2025)

	require.NoError(t, lock.Acquire(ctx, key))
	mr.FastForward(2 * time.Second)
	require.NoError(t, lock.Acquire(ctx, key))
}

func TestSyncLockNilClientIsNoop(t *testing.T) {
	lock := NewSyncLock(nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, lock.Acquire(ctx, CalendarSyncLockKey(2025)))
	lock.Release(ctx, CalendarSyncLockKey(2025))
	require.NoError(t, lock.Acquire(ctx, CalendarSyncLockKey(2025)))
}
