package security

import (
	"net/http"
	"strconv"
)

// Headers attaches the storefront's baseline response headers.
type Headers struct {
	// HSTSMaxAge is sent on TLS requests only; zero disables HSTS.
	HSTSMaxAge int
}

// Middleware sets the headers before the handler writes.
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Cache-Control", "no-store")
		if h.HSTSMaxAge > 0 && r.TLS != nil {
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(h.HSTSMaxAge)+"; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
