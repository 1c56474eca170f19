package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/college-canteen/canteen-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRazorpay(t *testing.T, handler http.HandlerFunc) *RazorpayClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewRazorpayClient(&config.Config{
		RazorpayBaseURL:   server.URL + "/v1/",
		RazorpayKeyID:     "rzp_test_key",
		RazorpayKeySecret: "rzp_test_secret",
	})
}

func TestRazorpayCreateOrder(t *testing.T) {
	client := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "rzp_test_secret", pass)

		var body GatewayOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(10000), body.Amount)
		assert.Equal(t, "ORD-1", body.Receipt)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"order_Nx1","amount":10000,"currency":"INR","receipt":"ORD-1","status":"created"}`))
	})

	order, err := client.CreateOrder(t.Context(), GatewayOrderRequest{Amount: 10000, Currency: "INR", Receipt: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, "order_Nx1", order.ID)
	assert.Equal(t, "created", order.Status)
}

func TestRazorpayRefund(t *testing.T) {
	client := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_123/refund", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2500), body["amount"])

		w.Write([]byte(`{"id":"rfnd_1","payment_id":"pay_123","amount":2500,"status":"processed"}`))
	})

	refund, err := client.Refund(t.Context(), "pay_123", 2500, map[string]string{"reason": "sold out"})
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", refund.ID)
	assert.Equal(t, int64(2500), refund.Amount)
}

func TestRazorpayErrorStatus(t *testing.T) {
	client := newTestRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount exceeds"}}`))
	})

	_, err := client.Refund(t.Context(), "pay_123", 999999, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "amount exceeds")
}

func TestPaymentSignature(t *testing.T) {
	// reference value computed with: printf 'order_1|pay_1' | openssl dgst -sha256 -hmac secret
	const expected = "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb"
	sig := PaymentSignature("secret", "order_1", "pay_1")
	assert.Equal(t, expected, sig)

	assert.True(t, VerifyPaymentSignature("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifyPaymentSignature("secret", "order_1", "pay_2", sig))
	assert.False(t, VerifyPaymentSignature("other", "order_1", "pay_1", sig))
	assert.True(t, VerifyPaymentSignature("secret", "order_1", "pay_1", strings.ToUpper(sig)))
	assert.False(t, VerifyPaymentSignature("secret", "order_1", "pay_1", expected[:10]))
	assert.False(t, VerifyPaymentSignature("secret", "order_1", "pay_1", ""))
}
