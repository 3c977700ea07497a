package payment

// IntentRequest captures the information required to open a payment intent with a provider.
type IntentRequest struct {
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	PaymentMethodTypes []string          `json:"payment_method_types"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	Description        string            `json:"description,omitempty"`
}

// PaymentIntent is a snapshot of the provider's record. It is never mutated locally.
type PaymentIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
	Created      int64  `json:"created"`
}

// WebhookEvent is a verified provider notification.
type WebhookEvent struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Object  map[string]any `json:"object,omitempty"`
	Created int64          `json:"created"`
}

// ObjectID returns the id of the embedded object, usually the payment intent id.
func (e WebhookEvent) ObjectID() string {
	if e.Object == nil {
		return ""
	}
	id, _ := e.Object["id"].(string)
	return id
}

// Webhook event types that get their own log branch.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
)
