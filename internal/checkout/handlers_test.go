package checkout_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/lock"
	"github.com/noah-isme/storefront/internal/order"
)

func doCheckout(t *testing.T, h *checkout.Handler, in checkout.Input) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(in)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Checkout(rr, req)
	return rr
}

func TestHandlerCheckoutPlacesOrder(t *testing.T) {
	m := filledCart(t)
	h := &checkout.Handler{Cart: m, Orders: order.NewMock(order.MockConfig{}), Logger: zerolog.Nop()}

	rr := doCheckout(t, h, checkout.Input{Shipping: shipping(), Payment: payment()})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Zero(t, m.Len())
}

func TestHandlerCheckoutEmptyCart(t *testing.T) {
	m := cart.NewManager(context.Background(), cart.ManagerConfig{})
	h := &checkout.Handler{Cart: m, Orders: order.NewMock(order.MockConfig{})}

	rr := doCheckout(t, h, checkout.Input{Shipping: shipping(), Payment: payment()})
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandlerCheckoutValidation(t *testing.T) {
	h := &checkout.Handler{Cart: filledCart(t), Orders: order.NewMock(order.MockConfig{})}
	ship := shipping()
	ship.ZipCode = ""

	rr := doCheckout(t, h, checkout.Input{Shipping: ship, Payment: payment()})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "ZIP code is required")
}

func TestHandlerCheckoutSubmissionFailure(t *testing.T) {
	m := filledCart(t)
	h := &checkout.Handler{Cart: m, Orders: order.NewMock(order.MockConfig{Failures: order.NewFailNext(1, nil)})}

	rr := doCheckout(t, h, checkout.Input{Shipping: shipping(), Payment: payment()})
	require.Equal(t, http.StatusPaymentRequired, rr.Code)
	require.Contains(t, rr.Body.String(), order.FailureMessage)
	require.Equal(t, 2, m.ItemCount())
}

func TestHandlerCheckoutRefusesConcurrentCheckout(t *testing.T) {
	m := filledCart(t)
	guard := lock.NewLocal()
	h := &checkout.Handler{Cart: m, Orders: order.NewMock(order.MockConfig{}), Lock: guard}

	err := guard.WithLock(context.Background(), checkout.DefaultLockKey, func(context.Context) error {
		rr := doCheckout(t, h, checkout.Input{Shipping: shipping(), Payment: payment()})
		require.Equal(t, http.StatusConflict, rr.Code)
		require.Contains(t, rr.Body.String(), "CHECKOUT_IN_PROGRESS")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, m.ItemCount())

	rr := doCheckout(t, h, checkout.Input{Shipping: shipping(), Payment: payment()})
	require.Equal(t, http.StatusCreated, rr.Code)
}
