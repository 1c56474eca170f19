package models

import (
	"time"
)

// TransactionStatus is the state of a payment attempt
type TransactionStatus string

const (
	TransactionCreated  TransactionStatus = "created"
	TransactionCaptured TransactionStatus = "captured"
	TransactionFailed   TransactionStatus = "failed"
	TransactionRefunded TransactionStatus = "refunded"
)

// Valid reports whether s is a known transaction status
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionCreated, TransactionCaptured, TransactionFailed, TransactionRefunded:
		return true
	}
	return false
}

// Payment records one gateway payment attempt for an order
type Payment struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	PaymentID        string            `gorm:"uniqueIndex;not null" json:"payment_id"` // public identifier
	OrderID          string            `gorm:"not null;index" json:"order_id"`         // public order identifier
	UserID           uint              `gorm:"not null;index" json:"user_id"`
	User             *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	GatewayOrderID   string            `gorm:"not null;index" json:"gateway_order_id"`
	PaymentGatewayID string            `gorm:"not null" json:"payment_gateway_id"` // intent id until captured, then the gateway payment id
	PayerName        string            `gorm:"not null" json:"payer_name"`
	Amount           float64           `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency         string            `gorm:"type:varchar(3);not null;default:'INR'" json:"currency"`
	Status           TransactionStatus `gorm:"type:varchar(20);not null;default:'created';index" json:"status"`
	PaymentMethod    string            `gorm:"not null;default:'online'" json:"payment_method"`
	PaymentTime      *time.Time        `json:"payment_time"`
	RefundID         *string           `json:"refund_id,omitempty"`
	RefundAmount     *float64          `gorm:"type:decimal(10,2)" json:"refund_amount,omitempty"`
	RefundTime       *time.Time        `json:"refund_time,omitempty"`
	RefundReason     string            `json:"refund_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
