package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/lock"
	"github.com/noah-isme/storefront/internal/order"
)

// Input is a one-shot checkout: both forms are submitted together and walked
// through the same steps an interactive flow would take.
type Input struct {
	Shipping ShippingForm `json:"shipping"`
	Payment  PaymentForm  `json:"payment"`
}

// DefaultLockKey guards checkout of the shared cart.
const DefaultLockKey = "storefront:checkout"

// Handler places orders from the shared cart. When Lock is set, concurrent
// checkouts of the same cart are refused instead of submitting it twice.
type Handler struct {
	Cart    *cart.Manager
	Orders  order.Provider
	Lock    lock.Locker
	LockKey string
	Logger  zerolog.Logger
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Cart == nil || h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout not configured", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	var (
		flow   *Flow
		placed order.Order
	)
	run := func(ctx context.Context) error {
		var err error
		flow, err = NewFlow(FlowConfig{Cart: h.Cart, Orders: h.Orders, Logger: &h.Logger})
		if err != nil {
			return err
		}
		if err := flow.SetShipping(payload.Shipping); err != nil {
			return err
		}
		if err := flow.Next(); err != nil {
			return err
		}
		if err := flow.SetPayment(payload.Payment); err != nil {
			return err
		}
		if err := flow.Next(); err != nil {
			return err
		}
		placed, err = flow.Submit(ctx)
		return err
	}

	var err error
	if h.Lock != nil {
		err = h.Lock.WithLock(r.Context(), h.lockKey(), run)
	} else {
		err = run(r.Context())
	}
	if err != nil {
		h.writeError(w, flow, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": placed})
}

func (h *Handler) lockKey() string {
	if h.LockKey == "" {
		return DefaultLockKey
	}
	return h.LockKey
}

func (h *Handler) writeError(w http.ResponseWriter, flow *Flow, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, lock.ErrBusy):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "Another checkout is already in progress", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusConflict, "EMPTY_CART", "Your cart is empty", nil)
	case errors.As(err, &verr):
		common.WriteError(w, common.ValidationFailed(verr.Fields, err))
	case errors.Is(err, order.ErrInvalidRequest):
		common.WriteError(w, common.ValidationFailed(flow.Errors(), err))
	case errors.Is(err, order.ErrSubmissionFailed):
		common.JSONError(w, http.StatusPaymentRequired, order.CodeSubmissionFailed, flow.Failure(), nil)
	case errors.Is(err, ErrSubmitInProgress), errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		h.Logger.Error().Err(err).Msg("checkout failed")
		common.WriteError(w, err)
	}
}
