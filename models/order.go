package models

import (
	"fmt"
	"time"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every order status
var OrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderServed, OrderCancelled}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible
func (s OrderStatus) Terminal() bool {
	return s == OrderServed || s == OrderCancelled
}

// PaymentStatus is the payment state recorded on an order
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// TransitionPolicy selects which edges of the order state graph apply
type TransitionPolicy int

const (
	// StandardPolicy is the kitchen workflow graph
	StandardPolicy TransitionPolicy = iota
	// PickupPolicy adds the counter override that lets staff hand over a
	// paid, confirmed order before it has been marked ready
	PickupPolicy
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderServed},
}

var pickupOverrides = map[OrderStatus][]OrderStatus{
	OrderConfirmed: {OrderServed},
	OrderPreparing: {OrderServed},
}

// TransitionError describes a rejected status change
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// ValidateStatusTransition checks a move along the standard graph
func ValidateStatusTransition(current, next OrderStatus) error {
	return ValidateTransition(StandardPolicy, current, next)
}

// ValidateTransition checks a move under the given policy. It is the only
// place order status edges are decided.
func ValidateTransition(policy TransitionPolicy, current, next OrderStatus) error {
	if !next.Valid() {
		return &TransitionError{From: current, To: next}
	}
	if containsStatus(orderTransitions[current], next) {
		return nil
	}
	if policy == PickupPolicy && containsStatus(pickupOverrides[current], next) {
		return nil
	}
	return &TransitionError{From: current, To: next}
}

func containsStatus(list []OrderStatus, s OrderStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

// Order is a customer's canteen order. Line items are snapshots taken at
// creation and TotalAmount is never recomputed.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderID       string        `gorm:"uniqueIndex;not null" json:"order_id"` // public identifier
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	User          *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items         []OrderItem   `gorm:"foreignKey:OrderRef" json:"items"`
	TotalAmount   float64       `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	OrderStatus   OrderStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"order_status"`
	PaymentID     *string       `json:"payment_id"`
	QRCodeData    *string       `gorm:"type:text" json:"qr_code_data,omitempty"`
	Notes         string        `json:"notes"`
	OrderDate     time.Time     `gorm:"not null;index" json:"order_date"`
	ServedDate    *time.Time    `json:"served_date"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a priced line of an order
type OrderItem struct {
	ID         uint    `gorm:"primaryKey" json:"-"`
	OrderRef   uint    `gorm:"not null;index" json:"-"`
	MenuItemID uint    `gorm:"not null" json:"menu_item_id"`
	DishName   string  `gorm:"not null" json:"dish_name"`
	Quantity   int     `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price      float64 `gorm:"type:decimal(10,2);not null" json:"price"`
	Subtotal   float64 `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
