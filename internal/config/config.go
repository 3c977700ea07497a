package config

import (
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
	AppEnv string
	Port   string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	StripeAPIURL         string

	CORSOrigin      string
	RateLimitWindow time.Duration
	RateLimitMax    int
	RedisURL        string
	BodyLimitBytes  int64

	// WebhookReplayTTL bounds duplicate-delivery detection; zero disables it.
	WebhookReplayTTL time.Duration

	LogLevel  string
	LogFormat string

	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	OTLPEndpoint     string
	TracingSampling  float64

	PprofEnabled bool
	PprofUser    string
	PprofPass    string

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and optional .env files.
// Missing Stripe credentials are not an error: they surface as provider failures at call time.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv: valueOrDefault(k.String("APP_ENV"), valueOrDefault(k.String("NODE_ENV"), "development")),
		Port:   valueOrDefault(k.String("PORT"), "3009"),

		StripeSecretKey:      strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripePublishableKey: strings.TrimSpace(k.String("STRIPE_PUBLISHABLE_KEY")),
		StripeWebhookSecret:  strings.TrimSpace(k.String("STRIPE_WEBHOOK_SECRET")),
		StripeAPIURL:         strings.TrimSpace(k.String("STRIPE_API_URL")),

		CORSOrigin:      valueOrDefault(k.String("CORS_ORIGIN"), "http://localhost:3000"),
		RateLimitWindow: time.Duration(parseInt(k.String("RATE_LIMIT_WINDOW_MS"), 900000)) * time.Millisecond,
		RateLimitMax:    parseInt(k.String("RATE_LIMIT_MAX_REQUESTS"), 100),
		RedisURL:        strings.TrimSpace(k.String("REDIS_URL")),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 10<<20)),

		WebhookReplayTTL: time.Duration(parseInt(k.String("WEBHOOK_REPLAY_TTL_SECONDS"), 86400)) * time.Second,

		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),

		MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "payments"),
		MetricsBuckets:   strings.TrimSpace(k.String("OBS_METRICS_BUCKETS_MS")),
		TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),

		PprofEnabled: parseBool(k.String("OBS_ENABLE_PPROF"), false),
		PprofUser:    strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:    strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),

		ShutdownTimeout: time.Duration(parseInt(k.String("SHUTDOWN_TIMEOUT_MS"), 5000)) * time.Millisecond,
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "3009"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// MissingCredentials lists the Stripe credential variables left empty.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.StripePublishableKey == "" {
		missing = append(missing, "STRIPE_PUBLISHABLE_KEY")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	return missing
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
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
