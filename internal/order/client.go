package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/storefront/internal/common"
	"github.com/noah-isme/storefront/internal/resilience"
)

// CodeSubmissionFailed is the error code used on the wire for injected or
// upstream payment failures.
const CodeSubmissionFailed = "SUBMISSION_FAILED"

// Client places orders against a remote storefront API. Each Create carries a
// fresh idempotency key so retried attempts cannot double-book.
type Client struct {
	baseURL string
	http    resilience.HTTPClient
	logger  zerolog.Logger
}

// ClientConfig groups Client dependencies.
type ClientConfig struct {
	BaseURL     string
	HTTPClient  *http.Client
	Timeout     time.Duration
	MaxAttempts int
	Logger      *zerolog.Logger
}

// NewClient constructs a network order provider.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("order: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("order: parse base url: %w", err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	breaker := resilience.NewBreaker(resilience.BreakerConfig{Target: "orders", Logger: &logger})
	return &Client{
		baseURL: base,
		http: resilience.HTTPClient{
			Client:      hc,
			Breaker:     breaker,
			MaxAttempts: attempts,
			BaseBackoff: 200 * time.Millisecond,
			Jitter:      0.2,
			Timeout:     cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// Create posts the request. Transport failures and upstream payment failures
// surface as *SubmissionError; rejected payloads as *ValidationError.
func (c *Client) Create(ctx context.Context, req Request) (Order, error) {
	body, err := json.Marshal(req.Normalize())
	if err != nil {
		return Order{}, fmt.Errorf("order: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(common.IdempotencyHeader, uuid.NewString())

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		c.logger.Warn().Err(err).Msg("order submission transport failure")
		return Order{}, &SubmissionError{Message: FallbackFailureMessage, Err: err}
	}
	var out Order
	if err := common.DecodeResponse(resp, &out); err != nil {
		return Order{}, translate(err)
	}
	return out, nil
}

// Get fetches an order by id.
func (c *Client) Get(ctx context.Context, id string) (Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/orders/"+url.PathEscape(id), nil)
	if err != nil {
		return Order{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return Order{}, fmt.Errorf("order: get %s: %w", id, err)
	}
	var out Order
	if err := common.DecodeResponse(resp, &out); err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound {
			return Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return Order{}, err
	}
	return out, nil
}

func translate(err error) error {
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		return &SubmissionError{Message: FallbackFailureMessage, Err: err}
	}
	switch {
	case appErr.Code == CodeSubmissionFailed:
		return &SubmissionError{Message: appErr.Message, Err: appErr}
	case appErr.HTTPStatus == http.StatusUnprocessableEntity:
		return &ValidationError{Fields: detailFields(appErr.Details), Err: appErr}
	}
	return &SubmissionError{Message: FallbackFailureMessage, Err: appErr}
}

func detailFields(details any) map[string]string {
	out := map[string]string{}
	m, ok := details.(map[string]any)
	if !ok {
		return out
	}
	fields, ok := m["fields"].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

var _ Provider = (*Client)(nil)
