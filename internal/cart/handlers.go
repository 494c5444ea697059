package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/common"
)

// Handler wires a cart Manager to HTTP. Products are resolved through the
// catalog so clients only send ids.
type Handler struct {
	Cart    *Manager
	Catalog catalog.Provider
}

// Routes registers the cart endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{productId}", h.UpdateItem)
	r.Delete("/cart/items/{productId}", h.RemoveItem)
	r.Post("/cart/toggle", h.Toggle)
}

// Get returns the cart snapshot with totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Cart.Snapshot()})
}

// AddItem adds or increments a cart line.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	var payload struct {
		ProductID int `json:"productId"`
		Qty       int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if payload.ProductID == 0 {
		common.WriteError(w, common.BadRequest("productId", "productId is required", nil))
		return
	}
	product, err := h.Catalog.GetByID(r.Context(), payload.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			common.WriteError(w, common.NotFound("product not found", err))
			return
		}
		common.WriteError(w, err)
		return
	}
	h.Cart.AddItem(r.Context(), product, payload.Qty)
	common.JSON(w, http.StatusCreated, map[string]any{"data": h.Cart.Snapshot()})
}

// UpdateItem replaces the quantity of a line; zero or less removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := lineID(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var payload struct {
		Qty *int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Qty == nil {
		common.WriteError(w, common.BadRequest("qty", "qty is required", err))
		return
	}
	if _, ok := h.Cart.Line(id); !ok {
		common.WriteError(w, common.NotFound("cart item not found", nil))
		return
	}
	h.Cart.UpdateQuantity(r.Context(), id, *payload.Qty)
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Cart.Snapshot()})
}

// RemoveItem drops a line. Unknown ids still answer 204.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := lineID(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Cart.RemoveItem(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	h.Cart.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips the cart panel visibility.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	open := h.Cart.Toggle()
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"open": open}})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Cart == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart not configured", nil)
		return false
	}
	return true
}

func lineID(r *http.Request) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "productId"))
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, common.BadRequest("productId", "productId must be an integer", err)
	}
	return id, nil
}
