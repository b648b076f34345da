package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestScanLock_AcquireAndRelease(t *testing.T) {
	mr := withMiniredis(t)
	lock := NewScanLock(2 * time.Minute)
	ctx := context.Background()

	ok, release := lock.TryAcquire(ctx, "payment-1")
	require.True(t, ok)
	require.True(t, mr.Exists(lockKeyPrefix+"payment-1"))

	// A second holder is refused while the lock is live.
	busy, _ := lock.TryAcquire(ctx, "payment-1")
	require.False(t, busy)

	// A different payment is unaffected.
	other, otherRelease := lock.TryAcquire(ctx, "payment-2")
	require.True(t, other)
	otherRelease()

	release()
	require.False(t, mr.Exists(lockKeyPrefix+"payment-1"))

	again, againRelease := lock.TryAcquire(ctx, "payment-1")
	require.True(t, again)
	againRelease()
}

func TestScanLock_TTLReclaimsAbandonedLock(t *testing.T) {
	mr := withMiniredis(t)
	lock := NewScanLock(time.Minute)
	ctx := context.Background()

	ok, _ := lock.TryAcquire(ctx, "payment-1")
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, release := lock.TryAcquire(ctx, "payment-1")
	require.True(t, ok)
	release()
}

func TestScanLock_DegradesToLocalLock(t *testing.T) {
	// Point the client at a closed server so every call fails.
	mr := miniredis.RunT(t)
	SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	mr.Close()

	lock := NewScanLock(time.Minute)
	ctx := context.Background()

	ok, release := lock.TryAcquire(ctx, "payment-1")
	require.True(t, ok)

	busy, _ := lock.TryAcquire(ctx, "payment-1")
	require.False(t, busy)

	release()

	ok, release = lock.TryAcquire(ctx, "payment-1")
	require.True(t, ok)
	release()
}

func TestScanLock_LocalOnlyWithoutRedis(t *testing.T) {
	SetClient(nil)
	lock := NewScanLock(time.Minute)
	ctx := context.Background()

	ok, release := lock.TryAcquire(ctx, "payment-1")
	require.True(t, ok)
	busy, _ := lock.TryAcquire(ctx, "payment-1")
	require.False(t, busy)
	release()
}
