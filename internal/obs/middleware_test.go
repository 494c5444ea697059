package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("storefront", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/{id}", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/products/{id}"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/products/{id}", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}

	samples := testutil.CollectAndCount(metrics.ReqDur)
	if samples == 0 {
		t.Fatalf("expected histogram sample")
	}

	if metrics.InFlight != nil {
		if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
			t.Fatalf("expected no in-flight requests, got %v", val)
		}
	}
}

func TestDomainMetricsHelpersTolerateNil(t *testing.T) {
	var vec *prometheus.CounterVec
	obs.IncCounter(vec, "add")
	obs.ObserveMillis(nil, 12, "ok")
}

func TestRequestLoggerWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("{}"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/orders"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["route"] != "/api/v1/orders" || line["status"] != float64(http.StatusCreated) {
		t.Fatalf("unexpected log line %v", line)
	}
	if line["client_ip"] != "203.0.113.9" {
		t.Fatalf("unexpected client ip %v", line["client_ip"])
	}
}

func TestRouteLabelUsesMatchedChiPattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("storefront", nil, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/abc", nil))
	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/orders/{id}", "404"))
	if total != 1 {
		t.Fatalf("expected route pattern label, got count %v", total)
	}
}

func TestParseBucketsCSV(t *testing.T) {
	got := obs.ParseBucketsCSV(" 50, x, -1, 5,,10")
	if len(got) != 3 || got[0] != 50 || got[1] != 5 || got[2] != 10 {
		t.Fatalf("unexpected buckets %v", got)
	}
	if obs.ParseBucketsCSV("") != nil {
		t.Fatalf("expected nil for empty input")
	}
}
