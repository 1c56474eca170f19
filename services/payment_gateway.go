package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/college-canteen/canteen-api/config"
)

// GatewayOrderRequest asks the gateway for a payment intent
type GatewayOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is a payment intent created at the gateway
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// GatewayRefund is a refund accepted by the gateway
type GatewayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// PaymentGateway defines the operations used against the payment provider
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
	Refund(ctx context.Context, gatewayPaymentID string, amount int64, notes map[string]string) (*GatewayRefund, error)
}

// RazorpayClient calls the Razorpay REST API with key-id/secret basic auth
type RazorpayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

var paymentGatewayInstance PaymentGateway

// NewRazorpayClient creates a new gateway client instance
func NewRazorpayClient(cfg *config.Config) *RazorpayClient {
	return &RazorpayClient{
		baseURL:   strings.TrimRight(cfg.RazorpayBaseURL, "/"),
		keyID:     cfg.RazorpayKeyID,
		keySecret: cfg.RazorpayKeySecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InitPaymentGateway installs the Razorpay client as the global gateway
func InitPaymentGateway(cfg *config.Config) PaymentGateway {
	paymentGatewayInstance = NewRazorpayClient(cfg)
	return paymentGatewayInstance
}

// GetPaymentGateway returns the initialized gateway
func GetPaymentGateway() PaymentGateway {
	return paymentGatewayInstance
}

// SetPaymentGateway sets the gateway instance (primarily for testing)
func SetPaymentGateway(gateway PaymentGateway) {
	paymentGatewayInstance = gateway
}

// CreateOrder creates a payment intent
func (c *RazorpayClient) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	var order GatewayOrder
	if err := c.post(ctx, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Refund refunds part or all of a captured payment
func (c *RazorpayClient) Refund(ctx context.Context, gatewayPaymentID string, amount int64, notes map[string]string) (*GatewayRefund, error) {
	body := map[string]interface{}{"amount": amount}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var refund GatewayRefund
	if err := c.post(ctx, "/payments/"+gatewayPaymentID+"/refund", body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *RazorpayClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close gateway response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("payment gateway %s returned status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

// PaymentSignature computes the gateway's checkout signature:
// hex(HMAC-SHA256(secret, gatewayOrderID + "|" + gatewayPaymentID))
func PaymentSignature(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature compares a client-supplied signature in constant time
func VerifyPaymentSignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	expected := PaymentSignature(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
