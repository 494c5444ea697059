package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront/internal/common"
)

// Handler exposes a Provider over HTTP. Wrap the provider in Announcing to
// publish order events.
type Handler struct {
	Orders Provider
	Logger zerolog.Logger
}

// Routes registers the order endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.Create)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
}

// Create places an order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	created, err := h.Orders.Create(r.Context(), req)
	if err != nil {
		h.writeCreateError(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Get returns a single order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.WriteError(w, common.BadRequest("id", "order id is required", nil))
		return
	}
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.WriteError(w, common.NotFound("order not found", err))
			return
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

// List pages through placed orders when the provider supports it.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	lister, ok := h.Orders.(Lister)
	if !ok {
		common.JSONError(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "order listing not supported", nil)
		return
	}
	page := common.ParsePage(r, 20)
	orders, total, err := lister.List(r.Context(), page.Offset(), page.PerPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page.Total = total
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.JSON(w, http.StatusOK, map[string]any{"data": orders, "page": page})
}

func (h *Handler) writeCreateError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		common.WriteError(w, common.ValidationFailed(verr.Fields, err))
		return
	}
	if errors.Is(err, ErrSubmissionFailed) {
		h.Logger.Warn().Err(err).Str("client_ip", common.ClientIP(r)).Msg("order submission failed")
		common.JSONError(w, http.StatusPaymentRequired, CodeSubmissionFailed, UserMessage(err), nil)
		return
	}
	common.WriteError(w, err)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order provider not configured", nil)
		return false
	}
	return true
}
