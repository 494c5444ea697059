package security_test

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/security"
)

func echo(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write(data)
	})
}

func TestBodyLimitPassesSmallBodies(t *testing.T) {
	handler := security.BodyLimit{Max: 10}.Middleware(echo(t))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader("hello")))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello", rr.Body.String())
}

func TestBodyLimitRejectsOversizedBodies(t *testing.T) {
	handler := security.BodyLimit{Max: 5}.Middleware(echo(t))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader("excessive")))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "PAYLOAD_TOO_LARGE", body.Error.Code)
}

func TestBodyLimitTrustsDeclaredLength(t *testing.T) {
	handler := security.BodyLimit{Max: 5}.Middleware(echo(t))
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader("tiny"))
	req.ContentLength = 100
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHeaders(t *testing.T) {
	handler := security.Headers{HSTSMaxAge: 600}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "https://shop.example/products", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "max-age=600; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}
