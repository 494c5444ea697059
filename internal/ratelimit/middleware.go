package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/storefront/internal/common"
)

// DefaultPrefix namespaces limiter keys in Redis.
const DefaultPrefix = "ratelimit"

// NewStore returns a Redis-backed store when rdb is set, otherwise an
// in-process store.
func NewStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix, CleanUpInterval: time.Minute}), nil
	}
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// New builds a limiter allowing max requests per window.
func New(store limiter.Store, max int, window time.Duration) *limiter.Limiter {
	return limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)})
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter *limiter.Limiter
	Key     func(*http.Request) string
	OnError func(error)
}

// ByClientIP keys requests by client address under scope.
func ByClientIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + common.ClientIP(r)
	}
}

// Middleware implements the http.Handler middleware interface. Limiter
// failures let the request through.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		lc, err := h.Limiter.Get(r.Context(), h.Key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

		if lc.Reached {
			retryAfter := int(time.Until(time.Unix(lc.Reset, 0)).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
