package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ProviderCallsTotal counts payment provider calls by operation and outcome.
	ProviderCallsTotal *prometheus.CounterVec
	// WebhookEventsTotal counts inbound webhooks by event type and outcome.
	WebhookEventsTotal *prometheus.CounterVec
	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
// Only the first call has an effect.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ProviderCallsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Count of payment provider calls by operation and result.",
		}, []string{"operation", "result"}))
		WebhookEventsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Count of inbound payment webhooks by event type and result.",
		}, []string{"type", "result"}))
		RateLimitedTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Number of requests rejected by the rate limiter.",
		}))
	})
}

// RecordProviderCall increments ProviderCallsTotal when domain metrics are registered.
func RecordProviderCall(operation, result string) {
	if ProviderCallsTotal == nil {
		return
	}
	ProviderCallsTotal.WithLabelValues(operation, result).Inc()
}

// RecordWebhookEvent increments WebhookEventsTotal when domain metrics are registered.
func RecordWebhookEvent(eventType, result string) {
	if WebhookEventsTotal == nil {
		return
	}
	WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// RecordRateLimited increments RateLimitedTotal when domain metrics are registered.
func RecordRateLimited() {
	if RateLimitedTotal == nil {
		return
	}
	RateLimitedTotal.Inc()
}
