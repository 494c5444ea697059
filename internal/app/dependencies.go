package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/storefront/internal/cart"
	"github.com/noah-isme/storefront/internal/catalog"
	"github.com/noah-isme/storefront/internal/config"
	"github.com/noah-isme/storefront/internal/events"
	"github.com/noah-isme/storefront/internal/health"
	"github.com/noah-isme/storefront/internal/lock"
	"github.com/noah-isme/storefront/internal/obs"
	"github.com/noah-isme/storefront/internal/order"
	"github.com/noah-isme/storefront/internal/ratelimit"
)

// Dependencies enumerates the services shared by the HTTP layer.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger
	Redis  *redis.Client

	// Fixture is always served under /api/v1; Catalog is what the cart reads
	// from and may be a network client.
	Fixture *catalog.Fixture
	Catalog catalog.Provider

	// OrderStore backs the /api/v1/orders routes; Orders is what checkout
	// submits to and may be a network client.
	OrderStore order.Provider
	Orders     order.Provider

	Cart    *cart.Manager
	Events  *events.Bus
	Limiter *limiter.Limiter
	Lock    lock.Locker
	Probes  map[string]health.Probe

	closers []func() error
}

// Build wires every dependency from cfg. Redis and Kafka are optional.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger, Probes: map[string]health.Probe{}}

	if cfg.RedisURL != "" {
		rdb, err := NewRedis(ctx, cfg.RedisURL, cfg.Obs.MetricsEnabled, logger)
		if err != nil {
			return nil, err
		}
		d.Redis = rdb
		d.closers = append(d.closers, rdb.Close)
		d.Probes["redis"] = health.RedisProbe(rdb)
	}

	fixture, err := catalog.LoadFixture(cfg.CatalogFeaturedLimit)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("load catalog fixture: %w", err)
	}
	d.Fixture = fixture
	d.Catalog = fixture
	if cfg.CatalogBaseURL != "" {
		catalogLogger := obs.Component(logger, "catalog")
		client, err := catalog.NewClient(catalog.ClientConfig{
			BaseURL: cfg.CatalogBaseURL,
			Cache:   catalog.NewCache(d.Redis, cfg.CatalogCacheTTL),
			Timeout: 5 * time.Second,
			Logger:  &catalogLogger,
		})
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.Catalog = client
	}

	d.Events = &events.Bus{Notifiers: []events.Notifier{events.LogNotifier{Logger: obs.Component(logger, "events")}}}
	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		d.Events.Publisher = events.OnlyTopics(pub, events.DefaultTopics()...)
		d.closers = append(d.closers, pub.Close)
	}

	orderLogger := obs.Component(logger, "orders")
	failures := order.NeverFail()
	if cfg.OrderFailureRate > 0 {
		failures = order.RandomFailure(cfg.OrderFailureRate)
	}
	d.OrderStore = order.Announcing{
		Provider: order.NewMock(order.MockConfig{
			Delay:    cfg.OrderDelay,
			Lead:     cfg.OrderDeliveryLead,
			Failures: failures,
			Logger:   &orderLogger,
		}),
		Bus:    d.Events,
		Logger: orderLogger,
	}
	d.Orders = d.OrderStore
	if cfg.OrderBaseURL != "" {
		client, err := order.NewClient(order.ClientConfig{
			BaseURL: cfg.OrderBaseURL,
			Timeout: 10 * time.Second,
			Logger:  &orderLogger,
		})
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		d.Orders = client
	}

	var store cart.Store = cart.NewMemoryStore(nil)
	if d.Redis != nil {
		store = cart.RedisStore{Client: d.Redis, Key: cfg.CartStorageKey}
	}
	cartLogger := obs.Component(logger, "cart")
	d.Cart = cart.NewManager(ctx, cart.ManagerConfig{
		Store:  store,
		TaxBps: cfg.TaxRateBps,
		Logger: &cartLogger,
	})

	limiterStore, err := NewLimiterStore(d.Redis)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	d.Limiter = ratelimit.New(limiterStore, cfg.OrderRateLimit, cfg.OrderRateWindow)

	if d.Redis != nil {
		d.Lock = lock.Redis{Client: d.Redis, TTL: cfg.OrderDelay + 30*time.Second}
	} else {
		d.Lock = lock.NewLocal()
	}

	return d, nil
}

// Close releases connections in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = errors.Join(errs, d.closers[i]())
	}
	d.closers = nil
	return errs
}

// NewRedis connects and instruments a Redis client.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewLimiterStore wires a rate limiter store, backed by Redis when available.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return ratelimit.NewStore(rdb, "storefront:ratelimit")
}
