package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CalendarSyncLockKey builds redis keys for calendar synchronization critical sections.
func CalendarSyncLockKey(year int) string {
	return fmt.Sprintf("taxcal:sync:%d:lock", year)
}

// SyncLock serializes batch synchronization runs across processes.
type SyncLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSyncLock constructs a SyncLock with the given lease duration.
func NewSyncLock(client *redis.Client, ttl time.Duration) *SyncLock {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SyncLock{client: client, ttl: ttl}
}

// Acquire takes the lock for key or returns ErrSyncInProgress when another
// holder has it. A nil redis client degrades to a no-op lock.
func (l *SyncLock) Acquire(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return fmt.Errorf("shared: acquire lock %s: %w", key, err)
	}
	if !ok {
		return ErrSyncInProgress
	}
	return nil
}

// Release drops the lock. Releasing an expired lock is harmless.
func (l *SyncLock) Release(ctx context.Context, key string) {
	if l == nil || l.client == nil {
		return
	}
	_ = l.client.Del(ctx, key).Err()
}
