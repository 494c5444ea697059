package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/storefront/internal/common"
)

// PerPage is the default page size of the product listing.
const PerPage = 12

// Handler exposes a Provider over HTTP.
type Handler struct {
	provider Provider
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Provider Provider
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{provider: cfg.Provider}
}

// Routes registers the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/categories", h.Categories)
	r.Get("/products", h.Products)
	r.Get("/products/search", h.Search)
	r.Get("/products/featured", h.Featured)
	r.Get("/products/{id}", h.Product)
	r.Get("/products/{id}/related", h.Related)
}

// Products handles GET /api/v1/products with optional category, price and
// text filters and a sort order. The list is paged only when page or limit is
// given; X-Total-Count always carries the number of matches.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	query := r.URL.Query()
	filter, filtered, err := ParseFilter(query)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sortKey, err := ParseSort(query.Get("sort"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var items []Product
	if filtered {
		items, err = h.provider.Filter(r.Context(), filter)
	} else {
		items, err = h.provider.GetAll(r.Context())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	items = slices.Clone(items)
	SortProducts(items, sortKey)

	total := len(items)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	if !query.Has("page") && !query.Has("limit") {
		common.JSON(w, http.StatusOK, map[string]any{"data": items})
		return
	}
	page := common.ParsePage(r, PerPage)
	page.Total = total
	start := min(page.Offset(), total)
	end := min(start+page.PerPage, total)
	common.JSON(w, http.StatusOK, map[string]any{"data": items[start:end], "page": page})
}

// Search handles GET /api/v1/products/search?q=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.provider.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Featured handles GET /api/v1/products/featured.
func (h *Handler) Featured(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	items, err := h.provider.Featured(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Product handles GET /api/v1/products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := productID(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	product, err := h.provider.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// Related handles GET /api/v1/products/{id}/related.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := productID(r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	items, err := Related(r.Context(), h.provider, id, 4)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	cats, err := h.provider.Categories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cats})
}

// ParseFilter normalises query values into a Filter. The boolean reports
// whether any criterion was present.
func ParseFilter(values url.Values) (Filter, bool, error) {
	var f Filter
	for _, raw := range values["category"] {
		if c := strings.TrimSpace(raw); c != "" {
			f.Categories = append(f.Categories, c)
		}
	}
	f.Search = strings.TrimSpace(values.Get("search"))

	minRaw := strings.TrimSpace(values.Get("minPrice"))
	maxRaw := strings.TrimSpace(values.Get("maxPrice"))
	if minRaw != "" || maxRaw != "" {
		if minRaw == "" || maxRaw == "" {
			return f, false, common.BadRequest("price", "minPrice and maxPrice must be provided together", nil)
		}
		lo, err := decimal.NewFromString(minRaw)
		if err != nil {
			return f, false, common.BadRequest("minPrice", "minPrice must be a number", err)
		}
		hi, err := decimal.NewFromString(maxRaw)
		if err != nil {
			return f, false, common.BadRequest("maxPrice", "maxPrice must be a number", err)
		}
		if lo.GreaterThan(hi) {
			return f, false, common.BadRequest("price", "minPrice cannot be greater than maxPrice", fmt.Errorf("invalid price range"))
		}
		f.PriceRange = &PriceRange{Min: lo, Max: hi}
	}
	present := len(f.Categories) > 0 || f.PriceRange != nil || f.Search != ""
	return f, present, nil
}

// Delay returns middleware that holds every request for d, simulating a slow
// upstream. It gives up early when the client goes away.
func Delay(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-r.Context().Done():
				return
			case <-timer.C:
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.provider == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog provider not configured", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.WriteError(w, common.NotFound("product not found", err))
		return
	}
	common.WriteError(w, err)
}

func productID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, common.BadRequest("id", "product id must be an integer", err)
	}
	return id, nil
}
