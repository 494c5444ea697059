package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/storefront/internal/common"
)

// NewLogger builds the process logger. format "console" (or "text") is human
// readable; anything else writes JSON lines. Unknown levels mean info.
func NewLogger(format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console", "text":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the owning component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// RequestLogger writes one "http_request" line per request: info for
// successes, warn for 4xx, error for 5xx.
type RequestLogger struct {
	Logger zerolog.Logger
}

func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := NewStatusRecorder(w)
		start := time.Now()
		next.ServeHTTP(recorder, r)

		status := recorder.Status()
		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = l.Logger.Error()
		case status >= http.StatusBadRequest:
			evt = l.Logger.Warn()
		default:
			evt = l.Logger.Info()
		}
		evt = evt.
			Str("method", r.Method).
			Str("route", Route(r)).
			Str("path", r.URL.Path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Int64("bytes", recorder.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context()))
		if span := trace.SpanContextFromContext(r.Context()); span.IsValid() {
			evt = evt.Str("trace_id", span.TraceID().String()).Str("span_id", span.SpanID().String())
		}
		if key := strings.TrimSpace(r.Header.Get(common.IdempotencyHeader)); key != "" {
			evt = evt.Str("idempotency_key", key)
		}
		if ip := common.ClientIP(r); ip != "" {
			evt = evt.Str("client_ip", ip)
		}
		evt.Msg("http_request")
	})
}
