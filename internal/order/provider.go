package order

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Provider creates and fetches orders. Implementations may be slow and may fail.
type Provider interface {
	Create(ctx context.Context, req Request) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
}

// Lister is implemented by providers that can page through placed orders,
// newest first.
type Lister interface {
	List(ctx context.Context, offset, limit int) ([]Order, int, error)
}

// FailureInjector decides whether a submission should fail.
type FailureInjector interface {
	ShouldFail(req Request) bool
}

// FailureFunc adapts a function to FailureInjector.
type FailureFunc func(req Request) bool

// ShouldFail implements FailureInjector.
func (f FailureFunc) ShouldFail(req Request) bool { return f(req) }

// NeverFail disables failure injection.
func NeverFail() FailureInjector {
	return FailureFunc(func(Request) bool { return false })
}

// RandomFailure fails a rate fraction of submissions.
func RandomFailure(rate float64) FailureInjector {
	return RandomFailureWith(rate, rand.Float64)
}

// RandomFailureWith is RandomFailure with an explicit [0,1) source.
func RandomFailureWith(rate float64, source func() float64) FailureInjector {
	if rate <= 0 {
		return NeverFail()
	}
	return FailureFunc(func(Request) bool { return source() < rate })
}

// FailNext fails the next n submissions, then delegates to then.
type FailNext struct {
	remaining atomic.Int64
	then      FailureInjector
}

// NewFailNext builds a FailNext injector. A nil then never fails.
func NewFailNext(n int, then FailureInjector) *FailNext {
	if then == nil {
		then = NeverFail()
	}
	f := &FailNext{then: then}
	f.remaining.Store(int64(n))
	return f
}

// ShouldFail implements FailureInjector.
func (f *FailNext) ShouldFail(req Request) bool {
	for {
		n := f.remaining.Load()
		if n <= 0 {
			return f.then.ShouldFail(req)
		}
		if f.remaining.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// MockConfig configures the in-memory order provider.
type MockConfig struct {
	Delay    time.Duration
	Lead     time.Duration
	Failures FailureInjector
	Now      func() time.Time
	NewID    func() string
	Logger   *zerolog.Logger
}

// Mock is an in-memory Provider simulating a slow and flaky order service.
type Mock struct {
	mu       sync.RWMutex
	orders   map[string]Order
	delay    time.Duration
	lead     time.Duration
	failures FailureInjector
	now      func() time.Time
	newID    func() string
	logger   zerolog.Logger
}

// NewMock builds a Mock. Failures default to NeverFail.
func NewMock(cfg MockConfig) *Mock {
	m := &Mock{
		orders:   make(map[string]Order),
		delay:    cfg.Delay,
		lead:     cfg.Lead,
		failures: cfg.Failures,
		now:      cfg.Now,
		newID:    cfg.NewID,
		logger:   zerolog.Nop(),
	}
	if m.lead <= 0 {
		m.lead = DefaultDeliveryLead
	}
	if m.failures == nil {
		m.failures = NeverFail()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if cfg.Logger != nil {
		m.logger = *cfg.Logger
	}
	return m
}

// Create validates the request, waits the configured delay and stores the order.
func (m *Mock) Create(ctx context.Context, req Request) (Order, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return Order{}, err
	}
	if err := sleep(ctx, m.delay); err != nil {
		return Order{}, &SubmissionError{Message: FallbackFailureMessage, Err: err}
	}
	if m.failures.ShouldFail(req) {
		m.logger.Warn().Int("items", len(req.Items)).Msg("order submission failed by injection")
		return Order{}, &SubmissionError{Message: FailureMessage}
	}
	o := New(m.newID(), req, m.now().UTC(), m.lead)
	m.mu.Lock()
	m.orders[o.ID] = o
	m.mu.Unlock()
	m.logger.Info().Str("order_id", o.ID).Str("total", o.Total.StringFixed(2)).Msg("order confirmed")
	return o, nil
}

// Get returns a stored order.
func (m *Mock) Get(ctx context.Context, id string) (Order, error) {
	if err := ctx.Err(); err != nil {
		return Order{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// List returns a page of orders, newest first, plus the total count.
func (m *Mock) List(ctx context.Context, offset, limit int) ([]Order, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.RLock()
	all := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		all = append(all, o)
	}
	m.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var (
	_ Provider = (*Mock)(nil)
	_ Lister   = (*Mock)(nil)
)
