package redis

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"paywatch.backend/pkg/logger"
)

const lockKeyPrefix = "paywatch:scan-lock:"

// ScanLock guards a payment id against concurrent evaluation: overlapping
// scan cycles (or a second deployment sharing the store) skip a busy payment
// instead of racing its read-modify-write. When Redis is unavailable it
// degrades to a process-local lock, which still covers the single-process
// scheduling model.
type ScanLock struct {
	ttl time.Duration

	mu           sync.Mutex
	local        map[string]struct{}
	degradedOnce sync.Once
}

func NewScanLock(ttl time.Duration) *ScanLock {
	return &ScanLock{
		ttl:   ttl,
		local: make(map[string]struct{}),
	}
}

// TryAcquire attempts to take the lock for id. It returns false when another
// evaluation holds it, and a release func when acquired.
func (l *ScanLock) TryAcquire(ctx context.Context, id string) (bool, func()) {
	key := lockKeyPrefix + id

	if GetClient() != nil {
		ok, err := SetNX(ctx, key, "1", l.ttl)
		if err == nil {
			if !ok {
				return false, nil
			}
			return true, func() {
				// Best effort; the TTL reclaims abandoned locks.
				_ = Del(context.Background(), key)
			}
		}
		l.degradedOnce.Do(func() {
			logger.Warn(ctx, "redis scan lock unavailable, using process-local locking", zap.Error(err))
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.local[id]; busy {
		return false, nil
	}
	l.local[id] = struct{}{}
	return true, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.local, id)
	}
}
