package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/college-canteen/canteen-api/metrics"
	"github.com/college-canteen/canteen-api/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// ToMinorUnits converts a rupee amount to paise, rounding half away from zero
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(minorUnitsPerMajor).Round(0).IntPart()
}

// NewPaymentID returns a fresh public payment identifier
func NewPaymentID() string {
	return "PAY-" + strings.ToUpper(uuid.NewString())
}

// PaymentIntent is the result of starting checkout for an order
type PaymentIntent struct {
	Payment      *models.Payment `json:"payment"`
	GatewayOrder *GatewayOrder   `json:"razorpay_order"`
}

// VerifyPaymentInput is the gateway checkout callback forwarded by the client
type VerifyPaymentInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	PaymentID        string
}

// PaymentReceipt is a captured payment with its pickup code
type PaymentReceipt struct {
	Payment   *models.Payment `json:"payment"`
	Order     *models.Order   `json:"order"`
	QRData    string          `json:"qr_data"`
	QRCode    string          `json:"qr_code"`
	QRCodeURL string          `json:"qr_code_url,omitempty"`
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	Status models.TransactionStatus
	UserID uint
	Date   *time.Time
}

// PaymentService implements checkout, capture, refunds and pickup codes
type PaymentService struct {
	db        *gorm.DB
	gateway   PaymentGateway
	qr        *QRCodec
	images    ImageService
	keySecret string
	currency  string
}

// NewPaymentService creates a new payment service instance; images may be nil
func NewPaymentService(db *gorm.DB, gateway PaymentGateway, qr *QRCodec, images ImageService, keySecret, currency string) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		db:        db,
		gateway:   gateway,
		qr:        qr,
		images:    images,
		keySecret: keySecret,
		currency:  currency,
	}
}

// CreatePaymentIntent opens a gateway order for the caller's unpaid order
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, user *models.User, orderID string) (*PaymentIntent, error) {
	order, err := findOrder(s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != user.ID {
		return nil, NotFoundError("Order")
	}
	if order.PaymentStatus != models.PaymentPending || order.OrderStatus == models.OrderCancelled {
		return nil, ConflictError(CodeAlreadyProcessed, "Order is already paid or cancelled")
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		Amount:   ToMinorUnits(order.TotalAmount),
		Currency: s.currency,
		Receipt:  order.OrderID,
		Notes: map[string]string{
			"order_id":   order.OrderID,
			"user_id":    fmt.Sprint(user.ID),
			"college_id": user.CollegeID,
		},
	})
	if err != nil {
		metrics.Payments.WithLabelValues("gateway_error").Inc()
		return nil, GatewayError("Failed to create payment order", err)
	}

	payment := &models.Payment{
		PaymentID:        NewPaymentID(),
		OrderID:          order.OrderID,
		UserID:           user.ID,
		GatewayOrderID:   gatewayOrder.ID,
		PaymentGatewayID: gatewayOrder.ID,
		PayerName:        user.Name,
		Amount:           order.TotalAmount,
		Currency:         s.currency,
		Status:           models.TransactionCreated,
		PaymentMethod:    "online",
	}
	if err := s.db.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	metrics.Payments.WithLabelValues("created").Inc()
	return &PaymentIntent{Payment: payment, GatewayOrder: gatewayOrder}, nil
}

// VerifyPayment checks the checkout signature and, only when it matches,
// captures the payment, marks the order paid and issues its pickup code
func (s *PaymentService) VerifyPayment(ctx context.Context, user *models.User, input VerifyPaymentInput) (*PaymentReceipt, error) {
	payment, err := s.findPayment(input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != user.ID {
		return nil, NotFoundError("Payment")
	}

	if input.GatewayOrderID != payment.GatewayOrderID ||
		!VerifyPaymentSignature(s.keySecret, input.GatewayOrderID, input.GatewayPaymentID, input.Signature) {
		metrics.Payments.WithLabelValues("rejected").Inc()
		slog.WarnContext(ctx, "payment signature rejected", "payment_id", payment.PaymentID, "order_id", payment.OrderID)
		return nil, newError(KindValidation, CodeInvalidSignature, "Invalid payment signature")
	}
	if payment.Status != models.TransactionCreated {
		return nil, ConflictError(CodeAlreadyProcessed, "Payment is already processed")
	}

	paidAt := time.Now()
	var order *models.Order
	var qrData string

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.TransactionCreated).
			Updates(map[string]interface{}{
				"status":             models.TransactionCaptured,
				"payment_gateway_id": input.GatewayPaymentID,
				"payment_time":       paidAt,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to capture payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ConflictError(CodeAlreadyProcessed, "Payment is already processed")
		}

		var findErr error
		order, findErr = findOrder(tx, payment.OrderID)
		if findErr != nil {
			return findErr
		}
		if order.PaymentStatus != models.PaymentPending || order.OrderStatus == models.OrderCancelled {
			return ConflictError(CodeAlreadyProcessed, "Order is already paid or cancelled")
		}

		var encodeErr error
		qrData, encodeErr = s.qr.Encode(BuildPayload(order, user, paidAt))
		if encodeErr != nil {
			return encodeErr
		}

		res = tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, models.PaymentPending).
			Updates(map[string]interface{}{
				"payment_status": models.PaymentPaid,
				"payment_id":     payment.PaymentID,
				"qr_code_data":   qrData,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark order paid: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ConflictError(CodeAlreadyProcessed, "Order is already paid or cancelled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Payments.WithLabelValues("captured").Inc()

	png, err := RenderPNG(qrData)
	if err != nil {
		return nil, err
	}
	receipt := &PaymentReceipt{QRData: qrData, QRCode: PNGDataURL(png)}
	receipt.QRCodeURL = s.storeQRCode(ctx, payment.OrderID, png)

	if receipt.Payment, err = s.findPayment(payment.PaymentID); err != nil {
		return nil, err
	}
	if receipt.Order, err = findOrder(s.db, payment.OrderID); err != nil {
		return nil, err
	}
	return receipt, nil
}

// Refund returns part or all of a captured payment through the gateway
func (s *PaymentService) Refund(ctx context.Context, paymentID string, amount float64, reason string) (*models.Payment, error) {
	payment, err := s.findPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.TransactionCaptured {
		return nil, ConflictError(CodeNotRefundable, "Only captured payments can be refunded")
	}

	// the gateway settles in whole paise
	minor := ToMinorUnits(amount)
	if minor < 1 {
		return nil, ValidationError("Refund amount must be greater than zero")
	}
	if minor > ToMinorUnits(payment.Amount) {
		return nil, ValidationError("Refund amount cannot exceed original payment amount")
	}
	refundAmount := decimal.New(minor, 0).Div(minorUnitsPerMajor)

	refund, err := s.gateway.Refund(ctx, payment.PaymentGatewayID, minor, map[string]string{
		"reason":   reason,
		"order_id": payment.OrderID,
	})
	if err != nil {
		metrics.Payments.WithLabelValues("gateway_error").Inc()
		return nil, GatewayError("Failed to process refund with payment gateway", err)
	}

	refundedAt := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.TransactionCaptured).
			Updates(map[string]interface{}{
				"status":        models.TransactionRefunded,
				"refund_id":     refund.ID,
				"refund_amount": refundAmount.Round(2).InexactFloat64(),
				"refund_time":   refundedAt,
				"refund_reason": reason,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to record refund: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ConflictError(CodeNotRefundable, "Only captured payments can be refunded")
		}

		if err := tx.Model(&models.Order{}).
			Where("order_id = ?", payment.OrderID).
			Update("payment_status", models.PaymentRefunded).Error; err != nil {
			return fmt.Errorf("failed to update order payment status: %w", err)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "refund accepted by gateway but not recorded",
			"payment_id", payment.PaymentID, "refund_id", refund.ID, "error", err)
		return nil, err
	}

	metrics.Payments.WithLabelValues("refunded").Inc()
	return s.findPayment(paymentID)
}

// History returns the caller's payments, newest first
func (s *PaymentService) History(userID uint, status models.TransactionStatus, page PageRequest) ([]models.Payment, Pagination, error) {
	return s.list(PaymentFilter{UserID: userID, Status: status}, page.Normalize(10), false)
}

// ListAll returns every payment matching filter, with payers
func (s *PaymentService) ListAll(filter PaymentFilter, page PageRequest) ([]models.Payment, Pagination, error) {
	return s.list(filter, page.Normalize(20), true)
}

// GetPayment returns a payment to its owner or to a viewer allowed to see all payments
func (s *PaymentService) GetPayment(viewer *models.User, paymentID string) (*models.Payment, error) {
	payment, err := s.findPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.UserID != viewer.ID && !models.Can(viewer.Role, models.CapPaymentViewAll) {
		return nil, NotFoundError("Payment")
	}
	return payment, nil
}

// OrderQRCode re-renders the stored pickup code of a paid order
func (s *PaymentService) OrderQRCode(viewer *models.User, orderID string) (string, []byte, error) {
	order, err := findOrder(s.db, orderID)
	if err != nil {
		return "", nil, err
	}
	if order.UserID != viewer.ID && !models.Can(viewer.Role, models.CapOrderViewAll) {
		return "", nil, NotFoundError("Order")
	}
	if order.QRCodeData == nil || *order.QRCodeData == "" {
		return "", nil, ConflictError(CodeNotPaid, "Order has no pickup code until it is paid")
	}

	png, err := RenderPNG(*order.QRCodeData)
	if err != nil {
		return "", nil, err
	}
	return *order.QRCodeData, png, nil
}

func (s *PaymentService) list(filter PaymentFilter, page PageRequest, withUser bool) ([]models.Payment, Pagination, error) {
	q := s.db.Model(&models.Payment{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Date != nil {
		start, end := models.DayBounds(*filter.Date)
		q = q.Where("created_at >= ? AND created_at < ?", start, end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count payments: %w", err)
	}

	if withUser {
		q = q.Preload("User")
	}
	var payments []models.Payment
	if err := q.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&payments).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, newPagination(page, total), nil
}

func (s *PaymentService) findPayment(paymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Where("payment_id = ?", paymentID).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError("Payment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, nil
}

// storeQRCode uploads the PNG when object storage is configured and returns
// a presigned URL; storage failures only lose the URL
func (s *PaymentService) storeQRCode(ctx context.Context, orderID string, png []byte) string {
	if s.images == nil {
		return ""
	}
	key, err := s.images.UploadQRCode(orderID, png)
	if err != nil {
		slog.WarnContext(ctx, "failed to store QR code", "order_id", orderID, "error", err)
		return ""
	}
	url, err := s.images.GetImageURL(key)
	if err != nil {
		slog.WarnContext(ctx, "failed to presign QR code", "order_id", orderID, "error", err)
		return ""
	}
	return url
}
