package services

import (
	"context"
	"fmt"
	"sync"
)

// MockPaymentGateway records calls and returns canned gateway objects
type MockPaymentGateway struct {
	mu      sync.Mutex
	orders  []GatewayOrderRequest
	refunds []GatewayRefund
	seq     int

	// CreateErr and RefundErr force the next calls to fail
	CreateErr error
	RefundErr error
}

// NewMockPaymentGateway creates a new mock gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

// SetAsMockForTesting sets this mock as the global gateway
func (m *MockPaymentGateway) SetAsMockForTesting() {
	SetPaymentGateway(m)
}

func (m *MockPaymentGateway) CreateOrder(_ context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	m.seq++
	m.orders = append(m.orders, req)
	return &GatewayOrder{
		ID:       fmt.Sprintf("order_mock%d", m.seq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
	}, nil
}

func (m *MockPaymentGateway) Refund(_ context.Context, gatewayPaymentID string, amount int64, _ map[string]string) (*GatewayRefund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}

	m.seq++
	refund := GatewayRefund{
		ID:        fmt.Sprintf("rfnd_mock%d", m.seq),
		PaymentID: gatewayPaymentID,
		Amount:    amount,
		Status:    "processed",
	}
	m.refunds = append(m.refunds, refund)
	return &refund, nil
}

// Orders returns the intent requests received so far
func (m *MockPaymentGateway) Orders() []GatewayOrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GatewayOrderRequest(nil), m.orders...)
}

// Refunds returns the refunds issued so far
func (m *MockPaymentGateway) Refunds() []GatewayRefund {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GatewayRefund(nil), m.refunds...)
}
