package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/order"
)

// Step is a checkout state.
type Step int

const (
	StepShipping Step = iota + 1
	StepPayment
	StepReview
	StepSubmitting
	StepConfirmed
	StepFailed
)

func (s Step) String() string {
	switch s {
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	case StepReview:
		return "review"
	case StepSubmitting:
		return "submitting"
	case StepConfirmed:
		return "confirmed"
	case StepFailed:
		return "failed"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// MarshalText renders the step name in JSON.
func (s Step) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	// ErrEmptyCart rejects checkout of an empty cart.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrValidation marks a step whose form is incomplete.
	ErrValidation = errors.New("checkout: validation failed")
	// ErrInvalidTransition is returned for moves the current step does not allow.
	ErrInvalidTransition = errors.New("checkout: invalid transition")
	// ErrSubmitInProgress is returned while an order request is outstanding.
	ErrSubmitInProgress = errors.New("checkout: submission in progress")
)

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: %s step has %d invalid field(s)", e.Step, len(e.Fields))
}

// Is reports ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Transition records one state change.
type Transition struct {
	From Step
	To   Step
}

// FlowConfig groups Flow dependencies.
type FlowConfig struct {
	Cart   *cart.Manager
	Orders order.Provider
	Logger *zerolog.Logger
	Now    func() time.Time
}

// Flow drives a single checkout from shipping details to a placed order.
type Flow struct {
	mu          sync.Mutex
	step        Step
	shipping    ShippingForm
	payment     PaymentForm
	errors      map[string]string
	placed      *order.Order
	failure     string
	transitions []Transition

	cart   *cart.Manager
	orders order.Provider
	logger zerolog.Logger
	now    func() time.Time
}

// NewFlow starts a checkout on the shipping step. An empty cart is rejected.
func NewFlow(cfg FlowConfig) (*Flow, error) {
	if cfg.Cart == nil || cfg.Orders == nil {
		return nil, errors.New("checkout: cart and order provider are required")
	}
	if cfg.Cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Flow{
		step:     StepShipping,
		shipping: DefaultShipping(),
		payment:  DefaultPayment(),
		errors:   map[string]string{},
		cart:     cfg.Cart,
		orders:   cfg.Orders,
		logger:   logger,
		now:      now,
	}, nil
}

// Step returns the current step.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Shipping returns the current shipping form.
func (f *Flow) Shipping() ShippingForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shipping
}

// Payment returns the current payment form.
func (f *Flow) Payment() PaymentForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payment
}

// SetShipping replaces the shipping form. Errors for fields that are now
// filled in are cleared.
func (f *Flow) SetShipping(form ShippingForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	f.shipping = form
	f.clearFilledLocked(form.normalized().values())
	return nil
}

// SetPayment replaces the payment form. Errors for fields that are now filled
// in are cleared.
func (f *Flow) SetPayment(form PaymentForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	f.payment = form
	values := form.normalized().values()
	if form.SameAsShipping {
		for _, k := range []string{"billingAddress", "billingCity", "billingState", "billingZipCode"} {
			values[k] = "-"
		}
	}
	f.clearFilledLocked(values)
	return nil
}

// Next validates the current step and advances. Validation failures populate
// Errors and leave the step unchanged.
func (f *Flow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepShipping:
		if err := f.checkLocked(StepShipping, ValidateShipping(f.shipping)); err != nil {
			return err
		}
		f.moveLocked(StepPayment)
	case StepPayment:
		if err := f.checkLocked(StepPayment, ValidatePayment(f.payment)); err != nil {
			return err
		}
		f.moveLocked(StepReview)
	default:
		return fmt.Errorf("%w: next from %s", ErrInvalidTransition, f.step)
	}
	return nil
}

// Back returns to the previous form step without validating.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepPayment:
		f.moveLocked(StepShipping)
	case StepReview:
		f.moveLocked(StepPayment)
	default:
		return fmt.Errorf("%w: back from %s", ErrInvalidTransition, f.step)
	}
	return nil
}

// Submit places the order from the review step. On success the submitted
// quantities leave the cart and the flow is confirmed. On failure the cart is untouched, Failure
// holds a displayable message and the flow returns to review for a retry.
func (f *Flow) Submit(ctx context.Context) (order.Order, error) {
	req, err := f.beginSubmit()
	if err != nil {
		return order.Order{}, err
	}

	start := f.now()
	placed, err := f.orders.Create(ctx, req)
	elapsed := obs.DurationMillis(f.now().Sub(start))

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		obs.IncCounter(obs.OrderSubmissionsTotal, "failed")
		obs.ObserveMillis(obs.OrderSubmitLatency, elapsed, "failed")
		f.failure = order.UserMessage(err)
		var verr *order.ValidationError
		if errors.As(err, &verr) {
			f.failure = "Please review your details and try again."
			for k, v := range verr.Fields {
				f.errors[k] = v
			}
		}
		f.logger.Warn().Err(err).Msg("order submission failed")
		f.moveLocked(StepFailed)
		f.moveLocked(StepReview)
		return order.Order{}, err
	}
	obs.IncCounter(obs.OrderSubmissionsTotal, "confirmed")
	obs.ObserveMillis(obs.OrderSubmitLatency, elapsed, "confirmed")
	f.placed = &placed
	f.failure = ""
	f.moveLocked(StepConfirmed)
	f.cart.Subtract(ctx, submitted(req))
	f.logger.Info().Str("order_id", placed.ID).Msg("order placed")
	return placed, nil
}

func (f *Flow) beginSubmit() (order.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepSubmitting:
		return order.Request{}, ErrSubmitInProgress
	case StepReview:
	default:
		return order.Request{}, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, f.step)
	}
	if err := f.checkLocked(StepShipping, ValidateShipping(f.shipping)); err != nil {
		return order.Request{}, err
	}
	if err := f.checkLocked(StepPayment, ValidatePayment(f.payment)); err != nil {
		return order.Request{}, err
	}
	snap := f.cart.Snapshot()
	if len(snap.Lines) == 0 {
		return order.Request{}, ErrEmptyCart
	}
	f.failure = ""
	f.moveLocked(StepSubmitting)
	return buildRequest(snap, f.shipping.normalized(), f.payment.normalized()), nil
}

// submitted maps product id to the quantity sent with the order.
func submitted(req order.Request) map[int]int {
	out := make(map[int]int, len(req.Items))
	for _, l := range req.Items {
		out[l.ProductID] += l.Quantity
	}
	return out
}

func buildRequest(snap cart.Snapshot, ship ShippingForm, pay PaymentForm) order.Request {
	items := make([]order.Line, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, order.Line{
			ProductID: l.ID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
	}
	return order.Request{
		Items:    items,
		Subtotal: snap.Summary.Subtotal,
		Tax:      snap.Summary.Tax,
		Total:    snap.Summary.Total,
		ShippingInfo: order.ShippingInfo{
			FirstName: ship.FirstName,
			LastName:  ship.LastName,
			Email:     ship.Email,
			Phone:     ship.Phone,
			Address:   ship.Address,
			City:      ship.City,
			State:     ship.State,
			ZipCode:   ship.ZipCode,
			Country:   ship.Country,
		},
		PaymentInfo: order.PaymentInfo{
			CardNumber: order.StripSpaces(pay.CardNumber),
			ExpiryDate: pay.ExpiryDate,
			CardName:   pay.CardName,
		},
	}
}

// Errors returns a copy of the current field errors.
func (f *Flow) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Order returns the placed order once confirmed.
func (f *Flow) Order() (order.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placed == nil {
		return order.Order{}, false
	}
	return *f.placed, true
}

// Failure returns the message of the last failed submission, if any.
func (f *Flow) Failure() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failure
}

// Transitions returns the state changes so far.
func (f *Flow) Transitions() []Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Transition(nil), f.transitions...)
}

func (f *Flow) editableLocked() error {
	switch f.step {
	case StepSubmitting:
		return ErrSubmitInProgress
	case StepConfirmed:
		return fmt.Errorf("%w: order already placed", ErrInvalidTransition)
	}
	return nil
}

func (f *Flow) checkLocked(step Step, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	for k, v := range fields {
		f.errors[k] = v
	}
	return &ValidationError{Step: step, Fields: fields}
}

func (f *Flow) clearFilledLocked(values map[string]string) {
	for k, v := range values {
		if v != "" {
			delete(f.errors, k)
		}
	}
}

func (f *Flow) moveLocked(to Step) {
	from := f.step
	f.step = to
	f.transitions = append(f.transitions, Transition{From: from, To: to})
	obs.IncCounter(obs.CheckoutTransitionsTotal, from.String(), to.String())
	f.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("checkout transition")
}
