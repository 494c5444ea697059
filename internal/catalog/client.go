package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/resilience"
)

// Client reads the catalog from a remote storefront API. Whole-collection reads
// and single-product lookups are cached when a Cache is configured.
type Client struct {
	baseURL string
	http    resilience.HTTPClient
	cache   *Cache
	logger  zerolog.Logger
}

// ClientConfig groups Client dependencies.
type ClientConfig struct {
	BaseURL     string
	HTTPClient  *http.Client
	Cache       *Cache
	Timeout     time.Duration
	MaxAttempts int
	Logger      *zerolog.Logger
}

// NewClient constructs a network catalog provider.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("catalog: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("catalog: parse base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Target: "catalog", OpenFor: 15 * time.Second, Logger: &logger})
	return &Client{
		baseURL: base,
		http: resilience.HTTPClient{
			Client:      hc,
			Breaker:     breaker,
			MaxAttempts: attempts,
			BaseBackoff: 100 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     cfg.Timeout,
		},
		cache:  cfg.Cache,
		logger: logger,
	}, nil
}

// GetAll fetches the full collection.
func (c *Client) GetAll(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.cached(ctx, "products:all", &out, func() error {
		return c.get(ctx, "/api/v1/products", nil, &out)
	})
	return out, err
}

// GetByID fetches one product, mapping a remote 404 to ErrNotFound.
func (c *Client) GetByID(ctx context.Context, id int) (Product, error) {
	var out Product
	err := c.cached(ctx, "products:"+strconv.Itoa(id), &out, func() error {
		return c.get(ctx, "/api/v1/products/"+strconv.Itoa(id), nil, &out)
	})
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound {
			return Product{}, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return Product{}, err
	}
	return out, nil
}

// Search runs a remote text search.
func (c *Client) Search(ctx context.Context, query string) ([]Product, error) {
	var out []Product
	err := c.get(ctx, "/api/v1/products/search", url.Values{"q": {query}}, &out)
	return out, err
}

// Filter runs a remote filtered listing.
func (c *Client) Filter(ctx context.Context, f Filter) ([]Product, error) {
	var out []Product
	err := c.get(ctx, "/api/v1/products", FilterQuery(f), &out)
	return out, err
}

// Featured fetches the featured prefix.
func (c *Client) Featured(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.cached(ctx, "products:featured", &out, func() error {
		return c.get(ctx, "/api/v1/products/featured", nil, &out)
	})
	return out, err
}

// Categories fetches the sorted category list.
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := c.cached(ctx, "categories", &out, func() error {
		return c.get(ctx, "/api/v1/categories", nil, &out)
	})
	return out, err
}

// FilterQuery encodes f into the query parameters understood by Handler.Products.
func FilterQuery(f Filter) url.Values {
	values := url.Values{}
	for _, cat := range f.Categories {
		values.Add("category", cat)
	}
	if f.PriceRange != nil {
		values.Set("minPrice", f.PriceRange.Min.String())
		values.Set("maxPrice", f.PriceRange.Max.String())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		values.Set("search", s)
	}
	return values
}

func (c *Client) cached(ctx context.Context, key string, dst any, load func() error) error {
	hit, err := c.cache.Fetch(ctx, key, dst, func(context.Context) error { return load() })
	if err == nil {
		c.logger.Debug().Str("key", key).Bool("cache_hit", hit).Msg("catalog read")
	}
	return err
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("catalog: %s: %w", path, err)
	}
	return common.DecodeResponse(resp, dst)
}

var _ Provider = (*Client)(nil)
