package payment_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payment-service/internal/payment"
)

const testWebhookSecret = "whsec_test_secret"

// fakeStripe emulates the subset of the payment intents API the adapter uses.
type fakeStripe struct {
	mu      sync.Mutex
	intents map[string]map[string]any
	forms   []map[string]string
	paths   []string
}

func newFakeStripe(t *testing.T) (*fakeStripe, *httptest.Server) {
	t.Helper()
	fs := &fakeStripe{intents: map[string]map[string]any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/payment_intents", fs.create)
	mux.HandleFunc("GET /v1/payment_intents/{id}", fs.retrieve)
	mux.HandleFunc("POST /v1/payment_intents/{id}/confirm", fs.transition("succeeded"))
	mux.HandleFunc("POST /v1/payment_intents/{id}/cancel", fs.transition("canceled"))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeStripe) remember(r *http.Request) {
	_ = r.ParseForm()
	form := map[string]string{}
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}
	fs.mu.Lock()
	fs.forms = append(fs.forms, form)
	fs.paths = append(fs.paths, r.Method+" "+r.URL.Path)
	fs.mu.Unlock()
}

func (fs *fakeStripe) create(w http.ResponseWriter, r *http.Request) {
	fs.remember(r)
	fs.mu.Lock()
	id := fmt.Sprintf("pi_%d", len(fs.intents)+1)
	var amount int64
	_, _ = fmt.Sscan(r.PostForm.Get("amount"), &amount)
	pi := map[string]any{
		"id":            id,
		"object":        "payment_intent",
		"amount":        amount,
		"currency":      r.PostForm.Get("currency"),
		"status":        "requires_payment_method",
		"client_secret": id + "_secret_abc",
		"created":       1700000000,
	}
	fs.intents[id] = pi
	fs.mu.Unlock()
	writeStripeJSON(w, http.StatusOK, pi)
}

func (fs *fakeStripe) retrieve(w http.ResponseWriter, r *http.Request) {
	fs.remember(r)
	fs.mu.Lock()
	pi, ok := fs.intents[r.PathValue("id")]
	fs.mu.Unlock()
	if !ok {
		writeMissing(w, r.PathValue("id"))
		return
	}
	writeStripeJSON(w, http.StatusOK, pi)
}

func (fs *fakeStripe) transition(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fs.remember(r)
		fs.mu.Lock()
		pi, ok := fs.intents[r.PathValue("id")]
		if ok {
			pi["status"] = status
		}
		fs.mu.Unlock()
		if !ok {
			writeMissing(w, r.PathValue("id"))
			return
		}
		writeStripeJSON(w, http.StatusOK, pi)
	}
}

func writeMissing(w http.ResponseWriter, id string) {
	w.Header().Set("Request-Id", "req_test_missing")
	writeStripeJSON(w, http.StatusNotFound, map[string]any{
		"error": map[string]any{
			"type":    "invalid_request_error",
			"code":    "resource_missing",
			"param":   "intent",
			"message": fmt.Sprintf("No such payment_intent: '%s'", id),
		},
	})
}

func writeStripeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newStripe(url, webhookSecret string) *payment.Stripe {
	return payment.NewStripe(payment.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: webhookSecret,
		APIURL:        url,
		HTTPClient:    &http.Client{Timeout: 5 * time.Second},
		Logger:        zerolog.Nop(),
	})
}

func TestStripeIntentLifecycle(t *testing.T) {
	fs, srv := newFakeStripe(t)
	adapter := newStripe(srv.URL, testWebhookSecret)
	ctx := context.Background()

	created, err := adapter.CreateIntent(ctx, payment.IntentRequest{
		Amount:             2000,
		Currency:           "USD",
		PaymentMethodTypes: []string{"card"},
		Metadata:           map[string]string{"order_id": "42"},
		Description:        "Order #42",
	})
	require.NoError(t, err)
	require.Equal(t, "pi_1", created.ID)
	require.Equal(t, int64(2000), created.Amount)
	require.Equal(t, "usd", created.Currency)
	require.Equal(t, "requires_payment_method", created.Status)
	require.Equal(t, "pi_1_secret_abc", created.ClientSecret)
	require.Equal(t, int64(1700000000), created.Created)

	form := fs.forms[0]
	require.Equal(t, "2000", form["amount"])
	require.Equal(t, "usd", form["currency"])
	require.Equal(t, "card", form["payment_method_types[0]"])
	require.Equal(t, "42", form["metadata[order_id]"])
	require.Equal(t, "Order #42", form["description"])

	fetched, err := adapter.RetrieveIntent(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, fetched)

	confirmed, err := adapter.ConfirmIntent(ctx, created.ID, "pm_card_visa")
	require.NoError(t, err)
	require.Equal(t, "succeeded", confirmed.Status)
	require.Equal(t, "pm_card_visa", fs.forms[2]["payment_method"])

	canceled, err := adapter.CancelIntent(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "canceled", canceled.Status)

	require.Equal(t, []string{
		"POST /v1/payment_intents",
		"GET /v1/payment_intents/pi_1",
		"POST /v1/payment_intents/pi_1/confirm",
		"POST /v1/payment_intents/pi_1/cancel",
	}, fs.paths)
}

func TestStripeErrorKeepsStatusAndCode(t *testing.T) {
	_, srv := newFakeStripe(t)
	adapter := newStripe(srv.URL, testWebhookSecret)

	_, err := adapter.RetrieveIntent(context.Background(), "pi_missing")
	require.Error(t, err)

	var perr *payment.PaymentError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusNotFound, perr.StatusCode)
	require.Equal(t, "resource_missing", perr.Code)
	require.Equal(t, "No such payment_intent: 'pi_missing'", perr.Message)
}

func TestStripeTransportErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	adapter := newStripe(url, testWebhookSecret)
	_, err := adapter.CancelIntent(context.Background(), "pi_1")
	require.Error(t, err)

	var perr *payment.PaymentError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusInternalServerError, perr.StatusCode)
	require.Equal(t, "Internal server error", perr.Message)
	require.Empty(t, perr.Code)
	require.Equal(t, "Internal server error", perr.Error())
}

func signPayload(secret string, ts time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

var succeededEvent = []byte(`{
  "id": "evt_123",
  "object": "event",
  "api_version": "2020-08-27",
  "created": 1700000100,
  "type": "payment_intent.succeeded",
  "data": {"object": {"id": "pi_123", "object": "payment_intent", "status": "succeeded"}}
}`)

func TestStripeVerifyWebhook(t *testing.T) {
	adapter := newStripe("", testWebhookSecret)

	event, err := adapter.VerifyWebhook(succeededEvent, signPayload(testWebhookSecret, time.Now(), succeededEvent))
	require.NoError(t, err)
	require.Equal(t, "evt_123", event.ID)
	require.Equal(t, payment.EventIntentSucceeded, event.Type)
	require.Equal(t, "pi_123", event.ObjectID())
	require.Equal(t, int64(1700000100), event.Created)
}

func TestStripeVerifyWebhookRejections(t *testing.T) {
	adapter := newStripe("", testWebhookSecret)
	now := time.Now()

	tampered := bytes.Replace(succeededEvent, []byte("pi_123"), []byte("pi_999"), 1)

	cases := map[string]struct {
		payload   []byte
		signature string
	}{
		"tampered payload": {tampered, signPayload(testWebhookSecret, now, succeededEvent)},
		"wrong secret":     {succeededEvent, signPayload("whsec_other", now, succeededEvent)},
		"stale timestamp":  {succeededEvent, signPayload(testWebhookSecret, now.Add(-time.Hour), succeededEvent)},
		"garbage header":   {succeededEvent, "not-a-signature"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.VerifyWebhook(tc.payload, tc.signature)
			require.ErrorIs(t, err, payment.ErrSignatureVerification)
		})
	}
}

func TestStripeVerifyWebhookFailsClosedWithoutSecret(t *testing.T) {
	adapter := newStripe("", "")

	_, err := adapter.VerifyWebhook(succeededEvent, signPayload("", time.Now(), succeededEvent))
	require.ErrorIs(t, err, payment.ErrSignatureVerification)
}
