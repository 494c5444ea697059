package checkout

import (
	"strings"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/order"
)

var validate = common.NewValidator()

// ShippingForm is the first checkout step.
type ShippingForm struct {
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

var shippingMessages = map[string]string{
	"firstName": "First name is required",
	"lastName":  "Last name is required",
	"email":     "Email is required",
	"phone":     "Phone number is required",
	"address":   "Address is required",
	"city":      "City is required",
	"state":     "State is required",
	"zipCode":   "ZIP code is required",
}

// PaymentForm is the second checkout step. Billing fields are only required
// when billing differs from shipping.
type PaymentForm struct {
	CardNumber     string `json:"cardNumber" validate:"required"`
	ExpiryDate     string `json:"expiryDate" validate:"required"`
	CVV            string `json:"cvv" validate:"required"`
	CardName       string `json:"cardName" validate:"required"`
	SameAsShipping bool   `json:"sameAsShipping"`
	BillingAddress string `json:"billingAddress" validate:"required_if=SameAsShipping false"`
	BillingCity    string `json:"billingCity" validate:"required_if=SameAsShipping false"`
	BillingState   string `json:"billingState" validate:"required_if=SameAsShipping false"`
	BillingZipCode string `json:"billingZipCode" validate:"required_if=SameAsShipping false"`
}

var paymentMessages = map[string]string{
	"cardNumber":     "Card number is required",
	"expiryDate":     "Expiry date is required",
	"cvv":            "CVV is required",
	"cardName":       "Name on card is required",
	"billingAddress": "Billing address is required",
	"billingCity":    "Billing city is required",
	"billingState":   "Billing state is required",
	"billingZipCode": "Billing ZIP code is required",
}

// DefaultShipping returns an empty shipping form with the default country.
func DefaultShipping() ShippingForm {
	return ShippingForm{Country: order.DefaultCountry}
}

// DefaultPayment returns an empty payment form billing to the shipping address.
func DefaultPayment() PaymentForm {
	return PaymentForm{SameAsShipping: true}
}

func (f ShippingForm) normalized() ShippingForm {
	for _, p := range []*string{&f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.Address, &f.City, &f.State, &f.ZipCode, &f.Country} {
		*p = strings.TrimSpace(*p)
	}
	if f.Country == "" {
		f.Country = order.DefaultCountry
	}
	return f
}

func (f PaymentForm) normalized() PaymentForm {
	for _, p := range []*string{&f.CardNumber, &f.ExpiryDate, &f.CVV, &f.CardName, &f.BillingAddress, &f.BillingCity, &f.BillingState, &f.BillingZipCode} {
		*p = strings.TrimSpace(*p)
	}
	return f
}

func (f ShippingForm) values() map[string]string {
	return map[string]string{
		"firstName": f.FirstName,
		"lastName":  f.LastName,
		"email":     f.Email,
		"phone":     f.Phone,
		"address":   f.Address,
		"city":      f.City,
		"state":     f.State,
		"zipCode":   f.ZipCode,
	}
}

func (f PaymentForm) values() map[string]string {
	return map[string]string{
		"cardNumber":     f.CardNumber,
		"expiryDate":     f.ExpiryDate,
		"cvv":            f.CVV,
		"cardName":       f.CardName,
		"billingAddress": f.BillingAddress,
		"billingCity":    f.BillingCity,
		"billingState":   f.BillingState,
		"billingZipCode": f.BillingZipCode,
	}
}

// ValidateShipping returns the field errors of the shipping step, or nil.
func ValidateShipping(f ShippingForm) map[string]string {
	return fieldErrors(validate.Struct(f.normalized()), shippingMessages)
}

// ValidatePayment returns the field errors of the payment step, or nil.
func ValidatePayment(f PaymentForm) map[string]string {
	return fieldErrors(validate.Struct(f.normalized()), paymentMessages)
}

func fieldErrors(err error, messages map[string]string) map[string]string {
	if err == nil {
		return nil
	}
	return common.FieldErrors(err, messages)
}
