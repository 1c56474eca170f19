package services

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/college-canteen/canteen-api/metrics"
	"github.com/college-canteen/canteen-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QRVerification is a successfully matched pickup code
type QRVerification struct {
	Order    *models.Order   `json:"order"`
	Customer *models.User    `json:"customer"`
	Payment  *models.Payment `json:"payment"`
	QRData   *QRPayload      `json:"qr_data"`
}

// StatusCounts tallies orders per fulfilment status
type StatusCounts struct {
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Preparing int64 `json:"preparing"`
	Ready     int64 `json:"ready"`
	Served    int64 `json:"served"`
	Cancelled int64 `json:"cancelled"`
}

func (c *StatusCounts) add(status models.OrderStatus) {
	switch status {
	case models.OrderPending:
		c.Pending++
	case models.OrderConfirmed:
		c.Confirmed++
	case models.OrderPreparing:
		c.Preparing++
	case models.OrderReady:
		c.Ready++
	case models.OrderServed:
		c.Served++
	case models.OrderCancelled:
		c.Cancelled++
	}
}

// DashboardStats summarises today's counter activity
type DashboardStats struct {
	TotalOrders  int64   `json:"totalOrders"`
	StatusCounts         // flattened into the stats object
	TotalRevenue float64 `json:"totalRevenue"`
}

// Dashboard is today's order board
type Dashboard struct {
	Orders []models.Order  `json:"orders"`
	Stats  *DashboardStats `json:"stats"`
}

// TopItem is a best-selling dish of the day
type TopItem struct {
	DishName string  `json:"dish_name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// DailySummary is the end-of-day report
type DailySummary struct {
	Date           string       `json:"date"`
	TotalOrders    int          `json:"totalOrders"`
	PaidOrders     int          `json:"paidOrders"`
	ServedOrders   int          `json:"servedOrders"`
	TotalRevenue   float64      `json:"totalRevenue"`
	OrdersByStatus StatusCounts `json:"ordersByStatus"`
	TopItems       []TopItem    `json:"topItems"`
}

// StaffService implements the pickup counter workflow
type StaffService struct {
	db *gorm.DB
	qr *QRCodec
}

// NewStaffService creates a new staff service instance
func NewStaffService(db *gorm.DB, qr *QRCodec) *StaffService {
	return &StaffService{db: db, qr: qr}
}

// VerifyQR matches a scanned pickup code against the stored order, its owner
// and its payment. Every mismatch produces the same failure.
func (s *StaffService) VerifyQR(raw string) (*QRVerification, error) {
	payload, err := s.qr.Decode(raw)
	if err != nil || payload.OrderID == "" {
		metrics.QRVerifications.WithLabelValues("malformed").Inc()
		return nil, newError(KindValidation, CodeMalformedQR, "Invalid QR code format")
	}

	var order models.Order
	err = s.db.Preload("Items").Preload("User").Where("order_id = ?", payload.OrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.QRVerifications.WithLabelValues("not_found").Inc()
		return nil, newError(KindNotFound, CodeOrderNotFound, "Order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if reason := s.mismatch(payload, &order); reason != "" {
		metrics.QRVerifications.WithLabelValues("rejected").Inc()
		slog.Warn("pickup code rejected", "order_id", order.OrderID, "reason", reason)
		return nil, newError(KindValidation, CodeQRVerificationFailed, "QR code verification failed")
	}

	var payment models.Payment
	paymentErr := s.db.Where("order_id = ? AND status = ?", order.OrderID, models.TransactionCaptured).
		Order("payment_time DESC").
		First(&payment).Error
	if paymentErr != nil && !errors.Is(paymentErr, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load payment: %w", paymentErr)
	}

	metrics.QRVerifications.WithLabelValues("verified").Inc()
	result := &QRVerification{Order: &order, Customer: order.User, QRData: payload}
	if paymentErr == nil {
		result.Payment = &payment
	}
	return result, nil
}

// mismatch names the first check the payload fails, or "" when all pass
func (s *StaffService) mismatch(payload *QRPayload, order *models.Order) string {
	switch {
	case !s.qr.Verify(payload):
		return "signature"
	case order.User == nil:
		return "owner"
	case payload.PayerName != order.User.Name:
		return "payer_name"
	case payload.CollegeID != order.User.CollegeID:
		return "college_id"
	case !decimal.NewFromFloat(payload.Amount).Equal(decimal.NewFromFloat(order.TotalAmount)):
		return "amount"
	case payload.PaymentStatus != qrPaidStatus:
		return "payload_status"
	case order.PaymentStatus != models.PaymentPaid:
		return "order_unpaid"
	}
	return ""
}

// ConfirmOrder accepts a paid order at the counter. Confirming an already
// confirmed order is a no-op.
func (s *StaffService) ConfirmOrder(orderID, notes string) (*models.Order, error) {
	var id uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := checkCounterPreconditions(order); err != nil {
			return err
		}
		id = order.ID
		if order.OrderStatus == models.OrderConfirmed {
			return nil
		}

		var extra map[string]interface{}
		if notes = strings.TrimSpace(notes); notes != "" {
			extra = map[string]interface{}{"notes": appendNote(order.Notes, notes)}
		}
		return applyTransition(tx, order, models.StandardPolicy, models.OrderConfirmed, extra)
	})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(id)
}

// ServeOrder hands a paid order to the customer. Staff may serve a confirmed
// or preparing order directly under the pickup policy.
func (s *StaffService) ServeOrder(orderID string) (*models.Order, error) {
	var id uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := checkCounterPreconditions(order); err != nil {
			return err
		}
		id = order.ID
		return applyTransition(tx, order, models.PickupPolicy, models.OrderServed, nil)
	})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(id)
}

// OrderDetails returns an order with its owner and captured payment
func (s *StaffService) OrderDetails(orderID string) (*models.Order, *models.Payment, error) {
	order, err := findOrder(s.db.Preload("User"), orderID)
	if err != nil {
		return nil, nil, err
	}

	var payment models.Payment
	err = s.db.Where("order_id = ?", order.OrderID).Order("created_at DESC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return order, &payment, nil
}

// Dashboard returns today's orders with per-status counts and paid revenue
func (s *StaffService) Dashboard() (*Dashboard, error) {
	orders, err := s.ordersOn(time.Now(), func(q *gorm.DB) *gorm.DB { return q })
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{TotalOrders: int64(len(orders))}
	revenue := decimal.Zero
	for _, order := range orders {
		stats.add(order.OrderStatus)
		if order.PaymentStatus == models.PaymentPaid {
			revenue = revenue.Add(decimal.NewFromFloat(order.TotalAmount))
		}
	}
	stats.TotalRevenue = revenue.Round(2).InexactFloat64()
	return &Dashboard{Orders: orders, Stats: stats}, nil
}

// PendingOrders returns today's paid orders still in the kitchen
func (s *StaffService) PendingOrders() ([]models.Order, error) {
	return s.ordersOn(time.Now(), func(q *gorm.DB) *gorm.DB {
		return q.Where("payment_status = ? AND order_status IN ?", models.PaymentPaid,
			[]models.OrderStatus{models.OrderConfirmed, models.OrderPreparing, models.OrderReady})
	})
}

// ServedOrders returns today's handed-over orders
func (s *StaffService) ServedOrders() ([]models.Order, error) {
	return s.ordersOn(time.Now(), func(q *gorm.DB) *gorm.DB {
		return q.Where("order_status = ?", models.OrderServed)
	})
}

// DailySummary reports totals, status counts and the ten best-selling dishes for a day
func (s *StaffService) DailySummary(day time.Time) (*DailySummary, error) {
	orders, err := s.ordersOn(day, func(q *gorm.DB) *gorm.DB { return q })
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{
		Date:        models.StartOfDay(day).Format("2006-01-02"),
		TotalOrders: len(orders),
	}
	revenue := decimal.Zero
	type tally struct {
		quantity int
		revenue  decimal.Decimal
	}
	byDish := map[string]*tally{}

	for _, order := range orders {
		summary.OrdersByStatus.add(order.OrderStatus)
		if order.PaymentStatus == models.PaymentPaid {
			summary.PaidOrders++
			revenue = revenue.Add(decimal.NewFromFloat(order.TotalAmount))
		}
		if order.OrderStatus == models.OrderServed {
			summary.ServedOrders++
		}
		for _, item := range order.Items {
			t, ok := byDish[item.DishName]
			if !ok {
				t = &tally{}
				byDish[item.DishName] = t
			}
			t.quantity += item.Quantity
			t.revenue = t.revenue.Add(decimal.NewFromFloat(item.Subtotal))
		}
	}
	summary.TotalRevenue = revenue.Round(2).InexactFloat64()

	summary.TopItems = make([]TopItem, 0, len(byDish))
	for name, t := range byDish {
		summary.TopItems = append(summary.TopItems, TopItem{
			DishName: name,
			Quantity: t.quantity,
			Revenue:  t.revenue.Round(2).InexactFloat64(),
		})
	}
	sort.Slice(summary.TopItems, func(i, j int) bool {
		if summary.TopItems[i].Quantity != summary.TopItems[j].Quantity {
			return summary.TopItems[i].Quantity > summary.TopItems[j].Quantity
		}
		return summary.TopItems[i].DishName < summary.TopItems[j].DishName
	})
	if len(summary.TopItems) > 10 {
		summary.TopItems = summary.TopItems[:10]
	}
	return summary, nil
}

func (s *StaffService) ordersOn(day time.Time, scope func(*gorm.DB) *gorm.DB) ([]models.Order, error) {
	start, end := models.DayBounds(day)
	q := s.db.Preload("Items").Preload("User").
		Where("order_date >= ? AND order_date < ?", start, end)

	var orders []models.Order
	if err := scope(q).Order("order_date DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

func (s *StaffService) loadOrder(id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").Preload("User").First(&order, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func checkCounterPreconditions(order *models.Order) error {
	if order.PaymentStatus != models.PaymentPaid {
		return ConflictError(CodeNotPaid, "Order is not paid")
	}
	if order.OrderStatus == models.OrderServed {
		return ConflictError(CodeAlreadyServed, "Order is already served")
	}
	return nil
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
