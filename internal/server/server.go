package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/payment-service/internal/common"
	"github.com/noah-isme/payment-service/internal/config"
	"github.com/noah-isme/payment-service/internal/health"
	"github.com/noah-isme/payment-service/internal/obs"
	"github.com/noah-isme/payment-service/internal/payment"
	"github.com/noah-isme/payment-service/internal/ratelimit"
	"github.com/noah-isme/payment-service/internal/security"
)

// Version is reported by the info route.
const Version = "1.0.0"

// NotFoundMessage is returned for unmatched paths and methods.
const NotFoundMessage = "Route not found"

// Deps carries everything the router needs. Construct once in main.
type Deps struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Provider  payment.Provider
	Limiter   *limiter.Limiter
	// Readiness is drained by Run. Nil reports ready.
	Readiness *health.Readiness
	// Redis is optional. When set it backs readiness and webhook replay checks.
	Redis *redis.Client
	// Metrics is nil when Prometheus is disabled.
	Metrics   *obs.HTTPMetrics
	Gatherer  prometheus.Gatherer
	Tracing   bool
}

type infoBody struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// New assembles the HTTP handler.
func New(d Deps) http.Handler {
	cfg := d.Config
	logger := d.Logger

	r := chi.NewRouter()
	r.Use(obs.RequestID)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	// Inside the logger and metrics so recovered 500s are still observed.
	r.Use(obs.Recoverer{Logger: logger}.Middleware)
	r.Use(security.DefaultHeaders().Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", obs.RequestIDHeader, payment.SignatureHeader},
		ExposedHeaders:   []string{obs.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limited := ratelimit.Handler{
		Limiter: d.Limiter,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	if d.Metrics != nil {
		gatherer := d.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{Environment: cfg.AppEnv, Readiness: d.Readiness, RedisTimeout: 300 * time.Millisecond}
	if d.Redis != nil {
		healthHandler.Checker = health.RedisChecker{Client: d.Redis}
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	paymentHandler := payment.NewHandler(d.Provider, logger)
	webhook := &payment.Webhook{Provider: d.Provider, Logger: logger}
	if d.Redis != nil && cfg.WebhookReplayTTL > 0 {
		webhook.Replay = d.Redis
		webhook.ReplayTTL = cfg.WebhookReplayTTL
	}

	r.Group(func(g chi.Router) {
		g.Use(limited.Middleware)
		g.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

		g.Get("/health", healthHandler.Health)
		g.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			common.JSON(w, http.StatusOK, infoBody{
				Success: true,
				Message: "Payment Service API",
				Version: Version,
				Endpoints: map[string]string{
					"health":   "/health",
					"payments": "/api/payments",
				},
			})
		})
		g.Route("/api/payments", func(p chi.Router) {
			// The group limiter has already counted these requests.
			p.NotFound(routeNotFound)
			p.MethodNotAllowed(routeNotFound)
			payment.Register(p, paymentHandler, webhook)
		})
	})

	notFound := limited.Middleware(http.HandlerFunc(routeNotFound))
	r.NotFound(notFound.ServeHTTP)
	r.MethodNotAllowed(notFound.ServeHTTP)

	return r
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	common.Error(w, http.StatusNotFound, NotFoundMessage)
}

// Run serves srv until ctx is cancelled, then drains in-flight requests for
// at most timeout. readiness is drained before the listener closes.
func Run(ctx context.Context, srv *http.Server, timeout time.Duration, readiness *health.Readiness, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received, shutting down gracefully")
	if readiness != nil {
		readiness.Drain()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
