package payment_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payment-service/internal/payment"
)

func TestValidatorCreateIntent(t *testing.T) {
	v := payment.NewValidator()

	req, perr := v.CreateIntent(strings.NewReader(`{
		"amount": 2000,
		"currency": "usd",
		"payment_method_types": ["card"],
		"metadata": {"order_id": "42"},
		"description": "Order #42"
	}`))
	require.Nil(t, perr)
	require.Equal(t, int64(2000), req.Amount)
	require.Equal(t, "USD", req.Currency)
	require.Equal(t, []string{"card"}, req.PaymentMethodTypes)
	require.Equal(t, map[string]string{"order_id": "42"}, req.Metadata)
	require.Equal(t, "Order #42", req.Description)
}

func TestValidatorCreateIntentRejections(t *testing.T) {
	v := payment.NewValidator()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, `"amount" is required`},
		{"empty object", `{}`, `"amount" is required`},
		{"zero amount", `{"amount":0,"currency":"usd","payment_method_types":["card"]}`, `"amount" must be a positive number`},
		{"negative amount", `{"amount":-5,"currency":"usd","payment_method_types":["card"]}`, `"amount" must be a positive number`},
		{"fractional amount", `{"amount":10.5,"currency":"usd","payment_method_types":["card"]}`, `"amount" must be an integer`},
		{"string amount", `{"amount":"100","currency":"usd","payment_method_types":["card"]}`, `"amount" must be an integer`},
		{"missing currency", `{"amount":100,"payment_method_types":["card"]}`, `"currency" is required`},
		{"short currency", `{"amount":100,"currency":"us","payment_method_types":["card"]}`, `"currency" length must be 3 characters long`},
		{"missing method types", `{"amount":100,"currency":"usd"}`, `"payment_method_types" is required`},
		{"empty method types", `{"amount":100,"currency":"usd","payment_method_types":[]}`, `"payment_method_types" must contain at least 1 items`},
		{"blank method type", `{"amount":100,"currency":"usd","payment_method_types":[""]}`, `"payment_method_types[0]" is not allowed to be empty`},
		{"blank second method type", `{"amount":100,"currency":"usd","payment_method_types":["card",""]}`, `"payment_method_types[1]" is not allowed to be empty`},
		{"unknown field", `{"amount":100,"currency":"usd","payment_method_types":["card"],"customer":"cus_1"}`, `"customer" is not allowed`},
		{"malformed json", `{"amount":`, "Invalid request body"},
		{"trailing garbage", `{"amount":100,"currency":"usd","payment_method_types":["card"]} garbage`, "Invalid request body"},
		{"two objects", `{"amount":100,"currency":"usd","payment_method_types":["card"]}{}`, "Invalid request body"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, perr := v.CreateIntent(strings.NewReader(tc.body))
			require.NotNil(t, perr)
			require.Equal(t, 400, perr.StatusCode)
			require.Equal(t, tc.want, perr.Message)
		})
	}
}

func TestValidatorIntentID(t *testing.T) {
	v := payment.NewValidator()

	id, perr := v.IntentID(" pi_123 ")
	require.Nil(t, perr)
	require.Equal(t, "pi_123", id)

	_, perr = v.IntentID("   ")
	require.NotNil(t, perr)
	require.Equal(t, `"paymentIntentId" is required`, perr.Message)
}

func TestValidatorConfirmIntent(t *testing.T) {
	v := payment.NewValidator()

	id, methodID, perr := v.ConfirmIntent("pi_123", strings.NewReader(`{"paymentMethodId":"pm_card_visa"}`))
	require.Nil(t, perr)
	require.Equal(t, "pi_123", id)
	require.Equal(t, "pm_card_visa", methodID)

	_, _, perr = v.ConfirmIntent("pi_123", strings.NewReader(`{}`))
	require.NotNil(t, perr)
	require.Equal(t, `"paymentMethodId" is required`, perr.Message)

	_, _, perr = v.ConfirmIntent("pi_123", strings.NewReader(`{"paymentMethodId":"pm_card_visa"} x`))
	require.NotNil(t, perr)
	require.Equal(t, "Invalid request body", perr.Message)

	_, _, perr = v.ConfirmIntent("", strings.NewReader(`{"paymentMethodId":"pm_card_visa"}`))
	require.NotNil(t, perr)
	require.Equal(t, `"paymentIntentId" is required`, perr.Message)
}
