package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

var draining atomic.Bool

// SetReady toggles readiness. It is cleared during graceful shutdown so load
// balancers stop routing before the listener closes.
func SetReady(ready bool) {
	draining.Store(!ready)
}

// RedisProbe pings client.
func RedisProbe(client *redis.Client) Probe {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes  map[string]Probe
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{}
	healthy := true
	if draining.Load() {
		status["server"] = "shutting down"
		healthy = false
	}
	names := make([]string, 0, len(h.Probes))
	for name := range h.Probes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
		err := h.Probes[name](ctx)
		cancel()
		if err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.Timeout
}
