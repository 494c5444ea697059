package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/common"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"peer", nil, "192.0.2.1"},
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "203.0.113.9"},
		{"forwarded skips junk", map[string]string{"X-Forwarded-For": "unknown, 198.51.100.4"}, "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "2001:db8::1"}, "2001:db8::1"},
		{"junk falls back to peer", map[string]string{"X-Forwarded-For": "nope", "X-Real-IP": "also-nope"}, "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			require.Equal(t, tc.want, common.ClientIP(r))
		})
	}
}
