package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/payment-service/internal/config"
	"github.com/noah-isme/payment-service/internal/health"
	"github.com/noah-isme/payment-service/internal/obs"
	"github.com/noah-isme/payment-service/internal/payment"
	"github.com/noah-isme/payment-service/internal/ratelimit"
	"github.com/noah-isme/payment-service/internal/server"
)

const serviceName = "payment-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("service", serviceName).
		Str("env", cfg.AppEnv).
		Logger()

	for _, name := range cfg.MissingCredentials() {
		logger.Warn().Str("variable", name).Msg("stripe credential not set; provider calls will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:    serviceName,
			ServiceVersion: server.Version,
			Endpoint:       cfg.OTLPEndpoint,
			SamplingRatio:  cfg.TracingSampling,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	store, err := ratelimit.NewStore(redisClient, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limit store")
	}

	provider := payment.NewStripe(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		APIURL:        cfg.StripeAPIURL,
		Logger:        logger,
	})

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
	}

	readiness := health.NewReadiness()
	handler := server.New(server.Deps{
		Config:    cfg,
		Logger:    logger,
		Provider:  provider,
		Limiter:   ratelimit.New(store, cfg.RateLimitWindow, cfg.RateLimitMax),
		Readiness: readiness,
		Redis:     redisClient,
		Metrics:   httpMetrics,
		Gatherer:  prometheus.DefaultGatherer,
		Tracing:   tracingEnabled,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().Str("port", cfg.Port).Msg("payment service started")
	if err := server.Run(ctx, srv, cfg.ShutdownTimeout, readiness, logger); err != nil {
		logger.Error().Err(err).Msg("server exited unexpectedly")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}

// connectRedis returns nil when REDIS_URL is unset. A configured but
// unreachable Redis is fatal.
func connectRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set; using in-memory rate limit store")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}
