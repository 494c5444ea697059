package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the breaker refuses a call.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State is the breaker position.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// gauge reports the value exported on the breaker_state metric.
func (s State) gauge() float64 {
	switch s {
	case Closed:
		return 0
	case Open:
		return 1
	case HalfOpen:
		return 2
	default:
		return -1
	}
}

// BreakerConfig tunes a Breaker. Zero values pick the defaults noted per field.
type BreakerConfig struct {
	// Target labels metrics and logs, e.g. "catalog" or "orders".
	Target string
	// MinRequests observed in a window before the ratio is evaluated (default 5).
	MinRequests int
	// FailureRatio at or above which the breaker opens (default 0.5).
	FailureRatio float64
	// OpenFor is the cool-off before a probe is let through (default 30s).
	OpenFor time.Duration
	// Window resets closed-state counters (default 1m).
	Window time.Duration
	Logger *zerolog.Logger
	Now    func() time.Time
}

// Breaker trips on a failure ratio and recovers through a single half-open probe.
type Breaker struct {
	cfg    BreakerConfig
	logger zerolog.Logger

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	windowStart time.Time
	openedAt    time.Time
	probing     bool
}

// NewBreaker applies defaults to cfg and starts closed.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg.Target = strings.TrimSpace(cfg.Target)
	if cfg.Target == "" {
		cfg.Target = "default"
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 5
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.5
	}
	if cfg.FailureRatio > 1 {
		cfg.FailureRatio = 1
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	b := &Breaker{cfg: cfg, logger: zerolog.Nop(), windowStart: cfg.Now()}
	if cfg.Logger != nil {
		b.logger = *cfg.Logger
	}
	if BreakerState != nil {
		BreakerState.WithLabelValues(cfg.Target).Set(Closed.gauge())
	}
	return b
}

// Target returns the label the breaker reports under.
func (b *Breaker) Target() string {
	if b == nil {
		return "default"
	}
	return b.cfg.Target
}

// State returns the current position. A nil breaker is always closed.
func (b *Breaker) State() State {
	if b == nil {
		return Closed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. Once the cool-off has elapsed an
// open breaker admits exactly one probe; others are refused until it reports.
// A nil breaker admits everything.
func (b *Breaker) Allow(ctx context.Context) bool {
	if b == nil {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.OpenFor {
			return false
		}
		b.moveLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an admitted call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.moveLocked(ctx, Closed)
		} else {
			b.moveLocked(ctx, Open)
		}
		return
	}

	now := b.cfg.Now()
	if now.Sub(b.windowStart) >= b.cfg.Window {
		b.failures, b.successes = 0, 0
		b.windowStart = now
	}
	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total >= b.cfg.MinRequests && float64(b.failures)/float64(total) >= b.cfg.FailureRatio {
		b.moveLocked(ctx, Open)
	}
}

func (b *Breaker) moveLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	now := b.cfg.Now()
	b.state = next
	b.failures, b.successes = 0, 0
	b.windowStart = now
	if next == Open {
		b.openedAt = now
	}

	target := b.cfg.Target
	if BreakerState != nil {
		BreakerState.WithLabelValues(target).Set(next.gauge())
	}
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(target, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(target).Inc()
	}

	evt := b.logger.Warn()
	if next == Closed {
		evt = b.logger.Info()
	}
	evt = evt.Str("target", target).Str("from_state", prev.String()).Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}
