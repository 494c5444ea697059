package order_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/order"
)

func validRequest() order.Request {
	return order.Request{
		Items: []order.Line{
			{ProductID: 1, Name: "Headphones", Price: decimal.RequireFromString("10.00"), Quantity: 2},
		},
		Subtotal: decimal.RequireFromString("20.00"),
		Tax:      decimal.RequireFromString("1.60"),
		Total:    decimal.RequireFromString("21.60"),
		ShippingInfo: order.ShippingInfo{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
			Phone:     "555-0100",
			Address:   "1 Analytical Way",
			City:      "London",
			State:     "LDN",
			ZipCode:   "00001",
		},
		PaymentInfo: order.PaymentInfo{
			CardNumber: "4111 1111 1111 1234",
			ExpiryDate: "12/30",
			CardName:   "Ada Lovelace",
		},
	}
}

func TestNormalizeStripsCardAndDefaultsCountry(t *testing.T) {
	req := validRequest().Normalize()
	require.Equal(t, "4111111111111234", req.PaymentInfo.CardNumber)
	require.Equal(t, order.DefaultCountry, req.ShippingInfo.Country)
}

func TestValidateAcceptsConsistentRequest(t *testing.T) {
	require.NoError(t, validRequest().Normalize().Validate())
}

func TestValidateRejectsMissingFields(t *testing.T) {
	req := validRequest()
	req.ShippingInfo.Email = ""
	req.Items = nil
	err := req.Normalize().Validate()
	require.ErrorIs(t, err, order.ErrInvalidRequest)

	var verr *order.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Fields, "shippingInfo.email")
	require.Contains(t, verr.Fields, "items")
}

func TestValidateRejectsMismatchedTotals(t *testing.T) {
	req := validRequest()
	req.Total = decimal.RequireFromString("99.00")
	var verr *order.ValidationError
	require.True(t, errors.As(req.Validate(), &verr))
	require.Equal(t, "total must equal subtotal plus tax", verr.Fields["total"])
}

func TestNewBuildsConfirmedOrder(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	o := order.New("abc", validRequest().Normalize(), created, 0)

	require.Equal(t, order.StatusConfirmed, o.Status)
	require.Equal(t, created.Add(7*24*time.Hour), o.EstimatedDelivery)
	require.Equal(t, "**** **** **** 1234", o.PaymentInfo.MaskedNumber)
	require.Equal(t, "1234", o.PaymentInfo.Last4)
	require.True(t, o.Total.Equal(o.Subtotal.Add(o.Tax)))
}

func TestUserMessage(t *testing.T) {
	require.Equal(t, order.FailureMessage, order.UserMessage(&order.SubmissionError{Message: order.FailureMessage}))
	require.Equal(t, order.FallbackFailureMessage, order.UserMessage(errors.New("boom")))
	require.ErrorIs(t, &order.SubmissionError{}, order.ErrSubmissionFailed)
}
