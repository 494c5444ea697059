package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/common"
)

func newIdem(t *testing.T) common.Idem {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return common.Idem{R: client, TTL: time.Minute}
}

func TestIdemRejectsReplay(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.Header.Set(common.IdempotencyHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusCreated, send().Code)
	require.Equal(t, http.StatusConflict, send().Code)
	require.Equal(t, 1, calls)
}

func TestIdemReleasesKeyOnServerError(t *testing.T) {
	idem := newIdem(t)
	status := http.StatusBadGateway
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set(common.IdempotencyHeader, "retry-me")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	status = http.StatusCreated
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.Clone(req.Context()))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestIdemReleasesKeyOnAnyFailure(t *testing.T) {
	for _, failed := range []int{
		http.StatusBadRequest,
		http.StatusPaymentRequired,
		http.StatusConflict,
		http.StatusUnprocessableEntity,
		http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
	} {
		t.Run(http.StatusText(failed), func(t *testing.T) {
			idem := newIdem(t)
			status := failed
			h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			send := func() int {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", nil)
				req.Header.Set(common.IdempotencyHeader, "fix-and-retry")
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				return rec.Code
			}

			require.Equal(t, failed, send())
			status = http.StatusCreated
			require.Equal(t, http.StatusCreated, send())
			require.Equal(t, http.StatusConflict, send())
		})
	}
}

func TestIdemWithoutHeaderPassesThrough(t *testing.T) {
	idem := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	}
	require.Equal(t, 2, calls)
}
