package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.RemoteAddr = remote
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareEnforcesLimitInMemory(t *testing.T) {
	store, err := ratelimit.NewStore(nil, "")
	require.NoError(t, err)
	h := ratelimit.Handler{
		Limiter: ratelimit.New(store, 1, time.Minute),
		Key:     ratelimit.ByClientIP("orders"),
	}.Middleware(okHandler())

	first := hit(h, "10.0.0.1:1234")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := hit(h, "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.NotEmpty(t, second.Header().Get("Retry-After"))
	require.Contains(t, second.Body.String(), "RATE_LIMITED")

	other := hit(h, "10.0.0.2:1234")
	require.Equal(t, http.StatusOK, other.Code)
}

func TestMiddlewareEnforcesLimitInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := ratelimit.NewStore(client, "test")
	require.NoError(t, err)
	h := ratelimit.Handler{
		Limiter: ratelimit.New(store, 2, time.Minute),
		Key:     func(*http.Request) string { return "static" },
	}.Middleware(okHandler())

	require.Equal(t, http.StatusOK, hit(h, "1.1.1.1:1").Code)
	require.Equal(t, http.StatusOK, hit(h, "1.1.1.1:1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(h, "1.1.1.1:1").Code)
}

func TestMiddlewareWithoutLimiterPassesThrough(t *testing.T) {
	h := ratelimit.Handler{}.Middleware(okHandler())
	require.Equal(t, http.StatusOK, hit(h, "1.1.1.1:1").Code)
}
