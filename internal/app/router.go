package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/checkout"
	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/ratelimit"
	"github.com/noah-isme/storefront/internal/security"
)

// RouterOptions toggles observability middleware.
type RouterOptions struct {
	Metrics *obs.HTTPMetrics
	Tracing bool
}

// NewRouter mounts every storefront route on a chi router.
func NewRouter(d *Dependencies, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(d.Config.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Probes: d.Probes}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Provider: d.Catalog})
	cartHandler := &cart.Handler{Cart: d.Cart, Catalog: d.Catalog}
	orderHandler := &order.Handler{Orders: d.OrderStore, Logger: obs.Component(d.Logger, "orders")}
	checkoutHandler := &checkout.Handler{
		Cart:    d.Cart,
		Orders:  d.Orders,
		Lock:    d.Lock,
		LockKey: checkout.DefaultLockKey + ":" + d.Config.CartStorageKey,
		Logger:  obs.Component(d.Logger, "checkout"),
	}

	limited := ratelimit.Handler{
		Limiter: d.Limiter,
		Key:     ratelimit.ByClientIP("orders"),
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}.Middleware
	idem := common.Idem{R: d.Redis, TTL: d.Config.IdempotencyTTL}.Middleware

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.Headers{}.Middleware)
		v.Use(security.BodyLimit{}.Middleware)
		v.Group(func(c chi.Router) {
			c.Use(catalog.Delay(d.Config.CatalogDelay))
			catalogHandler.Routes(c)
		})
		cartHandler.Routes(v)

		v.Group(func(o chi.Router) {
			o.Use(limited)
			o.With(idem).Post("/orders", orderHandler.Create)
			o.With(idem).Post("/checkout", checkoutHandler.Checkout)
		})
		v.Get("/orders", orderHandler.List)
		v.Get("/orders/{id}", orderHandler.Get)
	})

	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
