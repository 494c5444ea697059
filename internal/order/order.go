package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront/internal/common"
)

// Status of a placed order. Mock orders are confirmed on creation.
type Status string

const (
	StatusConfirmed Status = "confirmed"
)

const (
	// DefaultCountry is prefilled on the shipping form.
	DefaultCountry = "United States"
	// DefaultDeliveryLead is added to createdAt for the delivery estimate.
	DefaultDeliveryLead = 7 * 24 * time.Hour
	// FailureMessage is shown to shoppers when payment processing fails.
	FailureMessage = "Payment processing failed. Please try again."
	// FallbackFailureMessage is shown when the failure carries no message.
	FallbackFailureMessage = "Failed to place order. Please try again."
)

var (
	// ErrNotFound is returned when an order id is unknown.
	ErrNotFound = errors.New("order: not found")
	// ErrSubmissionFailed marks a transient, retryable submission failure.
	ErrSubmissionFailed = errors.New("order: submission failed")
	// ErrInvalidRequest marks a request that fails validation.
	ErrInvalidRequest = errors.New("order: invalid request")
)

// SubmissionError carries the shopper-facing message of a failed submission.
type SubmissionError struct {
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e.Message == "" {
		return FallbackFailureMessage
	}
	return e.Message
}

// Is reports ErrSubmissionFailed.
func (e *SubmissionError) Is(target error) bool { return target == ErrSubmissionFailed }

// Unwrap returns the underlying cause, if any.
func (e *SubmissionError) Unwrap() error { return e.Err }

// UserMessage extracts a message fit for display from a submission error.
func UserMessage(err error) string {
	var sub *SubmissionError
	if errors.As(err, &sub) {
		return sub.Error()
	}
	return FallbackFailureMessage
}

// Line is an immutable snapshot of a cart line.
type Line struct {
	ProductID int             `json:"productId" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"min=1"`
}

// ShippingInfo is the delivery contact and address.
type ShippingInfo struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country"`
}

// PaymentInfo is the card data sent with a request. CVV is never sent.
type PaymentInfo struct {
	CardNumber string `json:"cardNumber" validate:"required"`
	ExpiryDate string `json:"expiryDate" validate:"required"`
	CardName   string `json:"cardName" validate:"required"`
}

// PaymentSummary is the card data kept on an order.
type PaymentSummary struct {
	MaskedNumber string `json:"cardNumber"`
	Last4        string `json:"last4"`
	ExpiryDate   string `json:"expiryDate"`
	CardName     string `json:"cardName"`
}

// Request is the payload for creating an order.
type Request struct {
	Items        []Line          `json:"items" validate:"required,min=1,dive"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	ShippingInfo ShippingInfo    `json:"shippingInfo"`
	PaymentInfo  PaymentInfo     `json:"paymentInfo"`
}

// Order is a placed order. It is never mutated after creation.
type Order struct {
	ID                string          `json:"id"`
	Items             []Line          `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	ShippingInfo      ShippingInfo    `json:"shippingInfo"`
	PaymentInfo       PaymentSummary  `json:"paymentInfo"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
}

var validate = common.NewValidator()

// Normalize strips card number spaces, trims fields and fills the default country.
func (r Request) Normalize() Request {
	out := r
	out.Items = append([]Line(nil), r.Items...)
	s := &out.ShippingInfo
	for _, f := range []*string{&s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Address, &s.City, &s.State, &s.ZipCode, &s.Country} {
		*f = strings.TrimSpace(*f)
	}
	out.PaymentInfo.CardNumber = StripSpaces(r.PaymentInfo.CardNumber)
	out.PaymentInfo.ExpiryDate = strings.TrimSpace(r.PaymentInfo.ExpiryDate)
	out.PaymentInfo.CardName = strings.TrimSpace(r.PaymentInfo.CardName)
	if s.Country == "" {
		s.Country = DefaultCountry
	}
	return out
}

// Validate checks required fields and that the totals add up.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Fields: common.FieldErrors(err, nil), Err: err}
	}
	fields := map[string]string{}
	subtotal := decimal.Zero
	for i, l := range r.Items {
		if l.Price.IsNegative() {
			fields[fmt.Sprintf("items[%d].price", i)] = "price must not be negative"
		}
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if !subtotal.Equal(r.Subtotal) {
		fields["subtotal"] = "subtotal does not match items"
	}
	if !r.Subtotal.Add(r.Tax).Equal(r.Total) {
		fields["total"] = "total must equal subtotal plus tax"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ValidationError lists invalid request fields.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d field(s)", ErrInvalidRequest, len(e.Fields))
}

// Is reports ErrInvalidRequest.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

// Unwrap returns the validator error, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// New builds a confirmed order from a normalized request.
func New(id string, req Request, createdAt time.Time, lead time.Duration) Order {
	if lead <= 0 {
		lead = DefaultDeliveryLead
	}
	return Order{
		ID:           id,
		Items:        append([]Line(nil), req.Items...),
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		Total:        req.Total,
		ShippingInfo: req.ShippingInfo,
		PaymentInfo: PaymentSummary{
			MaskedNumber: MaskCard(req.PaymentInfo.CardNumber),
			Last4:        last4(req.PaymentInfo.CardNumber),
			ExpiryDate:   req.PaymentInfo.ExpiryDate,
			CardName:     req.PaymentInfo.CardName,
		},
		Status:            StatusConfirmed,
		CreatedAt:         createdAt,
		EstimatedDelivery: createdAt.Add(lead),
	}
}

// StripSpaces removes all whitespace from a card number.
func StripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// MaskCard renders a card number as "**** **** **** 1234".
func MaskCard(number string) string {
	return "**** **** **** " + last4(number)
}

func last4(number string) string {
	n := StripSpaces(number)
	if len(n) <= 4 {
		return n
	}
	return n[len(n)-4:]
}
