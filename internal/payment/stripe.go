package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/payment-service/internal/obs"
)

const defaultStripeTimeout = 80 * time.Second

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL overrides the API base URL, e.g. for stripe-mock.
	APIURL     string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Stripe implements Provider on top of the Stripe payment intents API.
type Stripe struct {
	api           *client.API
	webhookSecret string
	logger        zerolog.Logger
}

// NewStripe builds a Stripe adapter. The backend never retries on its own.
func NewStripe(cfg StripeConfig) *Stripe {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultStripeTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     stripeLogger{logger: cfg.Logger},
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
	}
	if url := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"); url != "" {
		backendCfg.URL = stripe.String(url)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Stripe{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        cfg.Logger.With().Str("provider", "stripe").Logger(),
	}
}

// CreateIntent opens a new payment intent.
func (s *Stripe) CreateIntent(ctx context.Context, req IntentRequest) (PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.Amount),
		Currency:           stripe.String(strings.ToLower(req.Currency)),
		PaymentMethodTypes: stripe.StringSlice(req.PaymentMethodTypes),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return PaymentIntent{}, s.fail(ctx, "create", "", err)
	}
	s.succeed(ctx, "create", pi).Int64("amount", pi.Amount).Msg("payment intent created")
	return toPaymentIntent(pi), nil
}

// RetrieveIntent fetches the current snapshot of a payment intent.
func (s *Stripe) RetrieveIntent(ctx context.Context, id string) (PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(id, params)
	if err != nil {
		return PaymentIntent{}, s.fail(ctx, "retrieve", id, err)
	}
	s.succeed(ctx, "retrieve", pi).Msg("payment intent retrieved")
	return toPaymentIntent(pi), nil
}

// ConfirmIntent attaches a payment method and asks Stripe to authorise the intent.
func (s *Stripe) ConfirmIntent(ctx context.Context, id, paymentMethodID string) (PaymentIntent, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return PaymentIntent{}, s.fail(ctx, "confirm", id, err)
	}
	s.succeed(ctx, "confirm", pi).Msg("payment intent confirmed")
	return toPaymentIntent(pi), nil
}

// CancelIntent requests cancellation of a payment intent.
func (s *Stripe) CancelIntent(ctx context.Context, id string) (PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Cancel(id, params)
	if err != nil {
		return PaymentIntent{}, s.fail(ctx, "cancel", id, err)
	}
	s.succeed(ctx, "cancel", pi).Msg("payment intent cancelled")
	return toPaymentIntent(pi), nil
}

// VerifyWebhook checks the Stripe-Signature header against the raw payload.
// The payload must not have been parsed or re-encoded.
func (s *Stripe) VerifyWebhook(payload []byte, signature string) (WebhookEvent, error) {
	if strings.TrimSpace(s.webhookSecret) == "" {
		s.logger.Error().Str("operation", "verify_webhook").Msg("webhook secret not configured")
		return WebhookEvent{}, ErrSignatureVerification
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("operation", "verify_webhook").Msg("webhook verification failed")
		return WebhookEvent{}, ErrSignatureVerification
	}

	out := WebhookEvent{ID: event.ID, Type: event.Type, Created: event.Created}
	if event.Data != nil {
		out.Object = event.Data.Object
	}
	s.logger.Debug().Str("operation", "verify_webhook").Str("event_id", out.ID).Str("event_type", out.Type).Msg("webhook verified")
	return out, nil
}

func (s *Stripe) succeed(ctx context.Context, operation string, pi *stripe.PaymentIntent) *zerolog.Event {
	obs.RecordProviderCall(operation, "success")
	return s.logger.Info().
		Ctx(ctx).
		Str("operation", operation).
		Str("payment_intent_id", pi.ID).
		Str("status", string(pi.Status))
}

// fail converts an SDK error into a *PaymentError. Only Stripe API errors
// carrying an HTTP status keep their message; anything else is reported generically.
func (s *Stripe) fail(ctx context.Context, operation, id string, err error) error {
	evt := s.logger.Error().Ctx(ctx).Err(err).Str("operation", operation)
	if id != "" {
		evt = evt.Str("payment_intent_id", id)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode > 0 {
		obs.RecordProviderCall(operation, "provider_error")
		evt.Str("code", string(stripeErr.Code)).
			Int("http_status", stripeErr.HTTPStatusCode).
			Str("request_id", stripeErr.RequestID).
			Msg("stripe request failed")
		return &PaymentError{
			Message:    stripeErr.Msg,
			Code:       string(stripeErr.Code),
			StatusCode: stripeErr.HTTPStatusCode,
			cause:      err,
		}
	}

	obs.RecordProviderCall(operation, "error")
	evt.Msg("stripe call failed")
	return internalError(fmt.Errorf("stripe %s: %w", operation, err))
}

func toPaymentIntent(pi *stripe.PaymentIntent) PaymentIntent {
	return PaymentIntent{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		ClientSecret: pi.ClientSecret,
		Created:      pi.Created,
	}
}

// stripeLogger routes the SDK's own diagnostics through zerolog.
type stripeLogger struct {
	logger zerolog.Logger
}

func (l stripeLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Str("component", "stripe-sdk").Msgf(format, v...)
}

func (l stripeLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug().Str("component", "stripe-sdk").Msgf(format, v...)
}

func (l stripeLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Str("component", "stripe-sdk").Msgf(format, v...)
}

func (l stripeLogger) Errorf(format string, v ...interface{}) {
	l.logger.Warn().Str("component", "stripe-sdk").Msgf(format, v...)
}
