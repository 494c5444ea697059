package cart_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
)

func newCartRouter(t *testing.T) (*cart.Manager, http.Handler) {
	t.Helper()
	fixture, err := catalog.LoadFixture(catalog.DefaultFeaturedLimit)
	require.NoError(t, err)
	m := cart.NewManager(context.Background(), cart.ManagerConfig{})
	h := &cart.Handler{Cart: m, Catalog: fixture}
	r := chi.NewRouter()
	h.Routes(r)
	return m, r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerAddAndGet(t *testing.T) {
	m, r := newCartRouter(t)

	rr := serve(r, http.MethodPost, "/cart/items", `{"productId":1,"qty":2}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, 2, m.ItemCount())

	rr = serve(r, http.MethodGet, "/cart", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data struct {
			Lines []struct {
				ID       int `json:"id"`
				Quantity int `json:"quantity"`
			} `json:"lines"`
			Count   int `json:"itemCount"`
			Summary struct {
				Subtotal string `json:"subtotal"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data.Lines, 1)
	require.Equal(t, 2, body.Data.Count)
	require.Equal(t, "499.98", body.Data.Summary.Subtotal)
}

func TestHandlerAddUnknownProduct(t *testing.T) {
	_, r := newCartRouter(t)
	rr := serve(r, http.MethodPost, "/cart/items", `{"productId":999}`)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerAddRequiresProduct(t *testing.T) {
	_, r := newCartRouter(t)
	rr := serve(r, http.MethodPost, "/cart/items", `{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerUpdateAndRemove(t *testing.T) {
	m, r := newCartRouter(t)
	serve(r, http.MethodPost, "/cart/items", `{"productId":4}`)

	rr := serve(r, http.MethodPatch, "/cart/items/4", `{"qty":3}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 3, m.ItemCount())

	rr = serve(r, http.MethodPatch, "/cart/items/5", `{"qty":3}`)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(r, http.MethodPatch, "/cart/items/4", `{"qty":0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Zero(t, m.Len())

	serve(r, http.MethodPost, "/cart/items", `{"productId":4}`)
	rr = serve(r, http.MethodDelete, "/cart/items/4", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Zero(t, m.Len())

	rr = serve(r, http.MethodDelete, "/cart/items/abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerClearAndToggle(t *testing.T) {
	m, r := newCartRouter(t)
	serve(r, http.MethodPost, "/cart/items", `{"productId":2}`)

	rr := serve(r, http.MethodDelete, "/cart", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Zero(t, m.Len())

	rr = serve(r, http.MethodPost, "/cart/toggle", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, m.IsOpen())
}
