package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	CartStorageKey string
	TaxRateBps     int

	CatalogFeaturedLimit int
	CatalogDelay         time.Duration
	CatalogBaseURL       string
	CatalogCacheTTL      time.Duration

	OrderDelay        time.Duration
	OrderFailureRate  float64
	OrderDeliveryLead time.Duration
	OrderBaseURL      string
	OrderRateLimit    int
	OrderRateWindow   time.Duration
	IdempotencyTTL    time.Duration
	KafkaBrokers      []string
	KafkaOrderTopic   string
	ShutdownGrace     time.Duration

	Obs Obs
}

// Obs groups logging, metrics and tracing switches.
type Obs struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
	ServiceName      string

	PprofEnabled bool
	PprofUser    string
	PprofPass    string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(valueOrDefault(k.String("CORS_ALLOWED_ORIGINS"), "*")),

		CartStorageKey: valueOrDefault(k.String("CART_STORAGE_KEY"), "cart"),
		TaxRateBps:     parseInt(k.String("PRICING_TAX_RATE_BPS"), 800),

		CatalogFeaturedLimit: parseInt(k.String("CATALOG_FEATURED_LIMIT"), 8),
		CatalogDelay:         parseDuration(k.String("CATALOG_DELAY"), "300ms"),
		CatalogBaseURL:       strings.TrimSpace(k.String("CATALOG_BASE_URL")),
		CatalogCacheTTL:      parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),

		OrderDelay:        parseDuration(k.String("ORDER_DELAY"), "500ms"),
		OrderFailureRate:  parseFloat(k.String("ORDER_FAILURE_RATE"), 0.1),
		OrderDeliveryLead: parseDuration(k.String("ORDER_DELIVERY_LEAD"), "168h"),
		OrderBaseURL:      strings.TrimSpace(k.String("ORDER_BASE_URL")),
		OrderRateLimit:    parseInt(k.String("ORDER_RATE_LIMIT"), 30),
		OrderRateWindow:   parseDuration(k.String("ORDER_RATE_WINDOW"), "1m"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		KafkaBrokers:      splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaOrderTopic:   valueOrDefault(k.String("KAFKA_ORDER_TOPIC"), "orders.created"),
		ShutdownGrace:     parseDuration(k.String("SHUTDOWN_GRACE"), "10s"),

		Obs: Obs{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "storefront"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
			ServiceName:      valueOrDefault(k.String("OBS_SERVICE_NAME"), "storefront-api"),
			PprofEnabled:     parseBool(k.String("OBS_ENABLE_PPROF"), false),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		},
	}

	if cfg.TaxRateBps < 0 {
		return nil, errors.New("PRICING_TAX_RATE_BPS must not be negative")
	}
	if cfg.OrderFailureRate < 0 || cfg.OrderFailureRate > 1 {
		return nil, errors.New("ORDER_FAILURE_RATE must be between 0 and 1")
	}
	if cfg.CatalogFeaturedLimit <= 0 {
		return nil, errors.New("CATALOG_FEATURED_LIMIT must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
