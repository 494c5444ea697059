package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/storefront/internal/common"
)

// DefaultBodyLimit caps cart and checkout payloads.
const DefaultBodyLimit int64 = 64 << 10

// BodyLimit rejects request payloads larger than Max bytes.
type BodyLimit struct {
	Max int64
}

func (b BodyLimit) max() int64 {
	if b.Max <= 0 {
		return DefaultBodyLimit
	}
	return b.Max
}

// Middleware buffers the body up to the limit and answers 413 PAYLOAD_TOO_LARGE beyond it.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		limit := b.max()
		if r.ContentLength > limit {
			tooLarge(w, limit)
			return
		}
		buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		_ = r.Body.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
			return
		}
		if int64(len(buf)) > limit {
			tooLarge(w, limit)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter, limit int64) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", map[string]any{"maxBytes": limit})
}
