package processor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentIDFromClientSecret(t *testing.T) {
	assert.Equal(t, "pi_3Nabc", IntentIDFromClientSecret("pi_3Nabc_secret_XYZ"))
	assert.Equal(t, "pi_plain", IntentIDFromClientSecret("pi_plain"))
}

func TestCreatePaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "6480", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		fmt.Fprint(w, `{"id":"pi_1","client_secret":"pi_1_secret_2","amount":6480,"currency":"usd","status":"requires_payment_method"}`)
	}))
	defer server.Close()

	intent, err := NewClient(server.URL, "sk_test").CreatePaymentIntent(context.Background(), 6480, "usd")

	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret_2", intent.ClientSecret)
}

func TestConfirmPaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_1/confirm", r.URL.Path)
		require.NoError(t, r.ParseForm())
		switch r.PostForm.Get("payment_method") {
		case "pm_card_visa":
			fmt.Fprint(w, `{"id":"pi_1","status":"succeeded"}`)
		case "pm_card_chargeDeclined":
			w.WriteHeader(http.StatusPaymentRequired)
			fmt.Fprint(w, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()
	client := NewClient(server.URL, "sk_test")
	c := context.Background()

	intent, err := client.ConfirmPaymentIntent(c, "pi_1", "pm_card_visa")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, intent.Status)

	_, err = client.ConfirmPaymentIntent(c, "pi_1", "pm_card_chargeDeclined")
	assert.ErrorIs(t, err, ErrProcessorRejected)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "card_declined", apiErr.Code)
	assert.Equal(t, "Your card was declined.", apiErr.Message)

	_, err = client.ConfirmPaymentIntent(c, "pi_1", "other")
	assert.ErrorIs(t, err, ErrProcessorUnavailable)
}

func TestProcessorUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := NewClient(server.URL, "sk_test").CreatePaymentIntent(context.Background(), 100, "usd")

	assert.ErrorIs(t, err, ErrProcessorUnavailable)
}
