package lock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/lock"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// holdWhile runs a second acquisition attempt while the first holder is inside fn.
func holdWhile(t *testing.T, l lock.Locker, attempt func() error) error {
	t.Helper()
	var inner error
	err := l.WithLock(context.Background(), "checkout:cart", func(context.Context) error {
		inner = attempt()
		return nil
	})
	require.NoError(t, err)
	return inner
}

func TestRedisLockIsExclusive(t *testing.T) {
	client, mr := newRedis(t)
	l := lock.Redis{Client: client, RetryBackoff: 5 * time.Millisecond}

	err := holdWhile(t, l, func() error {
		require.True(t, mr.Exists("checkout:cart"))
		return l.WithLock(context.Background(), "checkout:cart", func(context.Context) error { return nil })
	})
	require.ErrorIs(t, err, lock.ErrBusy)
	require.False(t, mr.Exists("checkout:cart"))
}

func TestRedisLockWaitsForRelease(t *testing.T) {
	client, _ := newRedis(t)
	l := lock.Redis{Client: client, Wait: time.Second, RetryBackoff: 5 * time.Millisecond}

	acquired := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), "k", func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired
	time.AfterFunc(20*time.Millisecond, func() { close(release) })

	ran := false
	err := l.WithLock(context.Background(), "k", func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestRedisLockKeepsForeignToken(t *testing.T) {
	client, mr := newRedis(t)
	l := lock.Redis{Client: client}

	err := l.WithLock(context.Background(), "k", func(context.Context) error {
		// simulate expiry and takeover by another holder
		mr.Set("k", "someone-else")
		return nil
	})
	require.NoError(t, err)
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestRedisLockPropagatesCallbackError(t *testing.T) {
	client, mr := newRedis(t)
	boom := errors.New("boom")
	err := lock.Redis{Client: client}.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("k"))
}

func TestLocalLock(t *testing.T) {
	l := lock.NewLocal()
	err := holdWhile(t, l, func() error {
		return l.WithLock(context.Background(), "checkout:cart", func(context.Context) error { return nil })
	})
	require.ErrorIs(t, err, lock.ErrBusy)

	require.NoError(t, l.WithLock(context.Background(), "checkout:cart", func(context.Context) error { return nil }))
}
