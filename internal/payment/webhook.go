package payment

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/payment-service/internal/common"
	"github.com/noah-isme/payment-service/internal/obs"
)

// SignatureHeader carries the provider signature over the raw payload.
const SignatureHeader = "Stripe-Signature"

const (
	missingSignatureMessage   = "Missing signature"
	verificationFailedMessage = "Webhook signature verification failed"
)

// ReplayStore claims webhook event ids. *redis.Client satisfies it.
type ReplayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Webhook receives provider notifications. Handling is log-only.
type Webhook struct {
	Provider Provider
	Logger   zerolog.Logger
	// Replay, when set, suppresses redelivered events for ReplayTTL.
	Replay    ReplayStore
	ReplayTTL time.Duration
}

// Handle verifies and acknowledges a webhook delivery.
func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r, &h.Logger)

	signature := r.Header.Get(SignatureHeader)
	if strings.TrimSpace(signature) == "" {
		obs.RecordWebhookEvent("unknown", "missing_signature")
		logger.Warn().Msg("webhook rejected: missing signature")
		writeWebhookError(w, missingSignatureMessage)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		obs.RecordWebhookEvent("unknown", "invalid")
		logger.Warn().Err(err).Msg("webhook rejected: unreadable body")
		writeWebhookError(w, verificationFailedMessage)
		return
	}

	event, err := h.Provider.VerifyWebhook(payload, signature)
	if err != nil {
		obs.RecordWebhookEvent("unknown", "invalid")
		logger.Warn().Int("bytes", len(payload)).Msg("webhook rejected: signature verification failed")
		writeWebhookError(w, verificationFailedMessage)
		return
	}

	if h.seen(r, logger, event) {
		obs.RecordWebhookEvent(event.Type, "duplicate")
		logger.Info().Str("event_id", event.ID).Str("event_type", event.Type).Msg("duplicate webhook ignored")
		common.JSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	h.dispatch(logger, event)
	obs.RecordWebhookEvent(event.Type, "handled")
	common.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Webhook) dispatch(logger *zerolog.Logger, event WebhookEvent) {
	switch event.Type {
	case EventIntentSucceeded:
		logger.Info().Str("event_id", event.ID).Str("payment_intent_id", event.ObjectID()).Msg("Payment succeeded")
	case EventIntentFailed:
		logger.Warn().Str("event_id", event.ID).Str("payment_intent_id", event.ObjectID()).Msg("Payment failed")
	case EventIntentCanceled:
		logger.Info().Str("event_id", event.ID).Str("payment_intent_id", event.ObjectID()).Msg("Payment canceled")
	default:
		logger.Info().Str("event_id", event.ID).Str("event_type", event.Type).Msg("Unhandled event type")
	}
}

// seen claims the event id in Redis and reports whether it was already claimed.
// Store failures are treated as first delivery.
func (h *Webhook) seen(r *http.Request, logger *zerolog.Logger, event WebhookEvent) bool {
	if h.Replay == nil || h.ReplayTTL <= 0 || event.ID == "" {
		return false
	}
	claimed, err := h.Replay.SetNX(r.Context(), "wh:stripe:"+event.ID, "1", h.ReplayTTL).Result()
	if err != nil {
		logger.Warn().Err(err).Str("event_id", event.ID).Msg("webhook replay check failed")
		return false
	}
	return !claimed
}

func writeWebhookError(w http.ResponseWriter, message string) {
	common.JSON(w, http.StatusBadRequest, map[string]string{"error": message})
}
