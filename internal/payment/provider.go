package payment

import "context"

// Provider abstracts the operations required from an upstream payment provider.
// Intent operations return a *PaymentError on failure; VerifyWebhook returns
// ErrSignatureVerification.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (PaymentIntent, error)
	ConfirmIntent(ctx context.Context, id, paymentMethodID string) (PaymentIntent, error)
	CancelIntent(ctx context.Context, id string) (PaymentIntent, error)
	VerifyWebhook(payload []byte, signature string) (WebhookEvent, error)
}
