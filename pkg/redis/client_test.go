package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestInitAndOperations(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { SetClient(nil) })

	require.NoError(t, Init("redis://"+mr.Addr(), ""))
	require.NotNil(t, GetClient())

	ctx := context.Background()
	require.NoError(t, Set(ctx, "k", "v", time.Minute))

	got, err := Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)

	ok, err := SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, Del(ctx, "k"))
	ok, err = SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestInitBadURL(t *testing.T) {
	require.Error(t, Init("not-a-url", ""))
}

func TestInitUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	require.Error(t, Init("redis://"+addr, ""))
	require.Nil(t, GetClient())
}
