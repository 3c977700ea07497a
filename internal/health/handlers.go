package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/payment-service/internal/common"
)

// RunningMessage is reported by the health endpoint.
const RunningMessage = "Payment service is running"

// Readiness tracks whether the process still accepts new traffic. The zero
// value and a nil pointer both report ready.
type Readiness struct {
	draining atomic.Bool
}

// NewReadiness returns a flag in the ready state.
func NewReadiness() *Readiness { return &Readiness{} }

// Drain marks the process as shutting down.
func (r *Readiness) Drain() { r.draining.Store(true) }

// Ready reports whether Drain has not been called.
func (r *Readiness) Ready() bool {
	return r == nil || !r.draining.Load()
}

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// RedisChecker probes the shared rate-limit store.
type RedisChecker struct {
	Client *redis.Client
}

// PingRedis issues PING bounded by timeout.
func (c RedisChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Client.Ping(ctx).Err()
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Environment  string
	Readiness    *Readiness
	Checker      Checker
	RedisTimeout time.Duration
	Now          func() time.Time
}

type healthBody struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

// Health reports that the process is serving requests.
func (h Handler) Health(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, healthBody{
		Success:     true,
		Message:     RunningMessage,
		Timestamp:   h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Environment: h.Environment,
	})
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on the drain flag and dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "redis": "disabled"}
	code := http.StatusOK
	if !h.Readiness.Ready() {
		status["status"] = "draining"
		code = http.StatusServiceUnavailable
	}
	if h.Checker != nil {
		status["redis"] = "ok"
		if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
			status["redis"] = "unavailable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	common.JSON(w, code, status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

func (h Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
