package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// IdempotencyHeader is the request header carrying the client-chosen key.
const IdempotencyHeader = "Idempotency-Key"

// Idem provides an Idempotency-Key middleware backed by Redis. Requests without
// the header, or when no client is configured, pass straight through.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(r *http.Request, key string) string {
	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := hashKey(r, header)
		ok, err := i.R.SetNX(ctx, key, "locked", i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		recorder := &statusCapture{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			// only a 2xx consumes the key; anything else may be retried with it
			if recorder.status < http.StatusOK || recorder.status >= http.StatusMultipleChoices {
				_ = i.R.Del(context.Background(), key).Err()
				return
			}
			_ = i.R.Expire(context.Background(), key, i.ttl()).Err()
		}()
		next.ServeHTTP(recorder, r)
	})
}

type statusCapture struct {
	http.ResponseWriter
	status int
}

func (s *statusCapture) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
