package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	PlatformAPIURL     string
	PlatformAPIKey     string
	PlatformTimeout    time.Duration
	RedisURL           string
	CORSAllowedOrigins []string
	DefaultFeePercent  decimal.Decimal
	DefaultFeeFixed    decimal.Decimal
	CatalogCacheTTL    time.Duration
	PromoRateWindow    time.Duration
	PromoRateMax       int
	LogFormat          string
	LogLevel           string
	TracingExporter    string
	TracingEndpoint    string
	TracingSampling    float64
	MetricsBucketsCSV  string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	feePercent, err := parseDecimal(k.String("DEFAULT_FEE_PERCENT"), "5.9")
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_FEE_PERCENT: %w", err)
	}
	feeFixed, err := parseDecimal(k.String("DEFAULT_FEE_FIXED"), "0.35")
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_FEE_FIXED: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		PlatformAPIURL:     strings.TrimSpace(k.String("PLATFORM_API_URL")),
		PlatformAPIKey:     strings.TrimSpace(k.String("PLATFORM_API_KEY")),
		PlatformTimeout:    parseDuration(k.String("PLATFORM_TIMEOUT"), "10s"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		DefaultFeePercent:  feePercent,
		DefaultFeeFixed:    feeFixed,
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		PromoRateWindow:    parseDuration(k.String("PROMO_RATE_WINDOW"), "1m"),
		PromoRateMax:       k.Int("PROMO_RATE_MAX"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		TracingExporter:    valueOrDefault(k.String("TRACING_EXPORTER"), "none"),
		TracingEndpoint:    strings.TrimSpace(k.String("TRACING_ENDPOINT")),
		TracingSampling:    k.Float64("TRACING_SAMPLING"),
		MetricsBucketsCSV:  k.String("METRICS_BUCKETS_MS"),
	}
	if cfg.PromoRateMax <= 0 {
		cfg.PromoRateMax = 30
	}

	if cfg.PlatformAPIURL == "" {
		return nil, errors.New("PLATFORM_API_URL is required")
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
		return value
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

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return decimal.NewFromString(base)
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
