// Package lock serializes work on a shared key, across processes when Redis
// is available and within one process otherwise.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrBusy is returned when the key stays held past the wait budget.
var ErrBusy = errors.New("lock: key is held")

// Locker runs fn while holding key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Redis is a SET NX lock released only by the token that took it.
type Redis struct {
	Client *redis.Client
	// TTL bounds how long a crashed holder blocks others.
	TTL time.Duration
	// Wait is how long to retry before ErrBusy; zero fails fast.
	Wait         time.Duration
	RetryBackoff time.Duration
}

// WithLock implements Locker.
func (l Redis) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l.Client == nil {
		return errors.New("lock: redis client not configured")
	}
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	backoff := l.RetryBackoff
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return ErrBusy
		}
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	defer func() {
		_ = releaseScript.Run(context.Background(), l.Client, []string{key}, token).Err()
	}()
	return fn(ctx)
}

// Local is an in-process Locker that never waits.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{held: map[string]struct{}{}}
}

// WithLock implements Locker.
func (l *Local) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[key]; busy {
		l.mu.Unlock()
		return ErrBusy
	}
	l.held[key] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}()
	return fn(ctx)
}
