package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/college-canteen/canteen-api/metrics"
	"github.com/college-canteen/canteen-api/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItemInput is one requested dish. Any client-side price is ignored.
type OrderItemInput struct {
	DishName string
	Quantity int
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Status models.OrderStatus
	Date   *time.Time
	UserID uint
}

// OrderService implements order placement and the order state machine
type OrderService struct {
	db *gorm.DB
}

// NewOrderService creates a new order service instance
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// NewOrderID returns a fresh public order identifier
func NewOrderID() string {
	return "ORD-" + strings.ToUpper(uuid.NewString())
}

// CreateOrder prices the items from today's menu and reserves stock. Every
// decrement and the order row commit together or not at all.
func (s *OrderService) CreateOrder(userID uint, items []OrderItemInput, notes string) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ValidationError("Order must contain at least one item")
	}
	for _, item := range items {
		if strings.TrimSpace(item.DishName) == "" {
			return nil, ValidationError("Dish name is required")
		}
		if item.Quantity < 1 {
			return nil, ValidationError("Quantity must be at least 1")
		}
	}

	now := time.Now()
	start, end := models.DayBounds(now)

	order := &models.Order{
		OrderID:       NewOrderID(),
		UserID:        userID,
		PaymentStatus: models.PaymentPending,
		OrderStatus:   models.OrderPending,
		Notes:         notes,
		OrderDate:     now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		total := decimal.Zero
		for _, requested := range items {
			dishName := strings.TrimSpace(requested.DishName)

			var menuItem models.MenuItem
			err := tx.Where("dish_name = ? AND date >= ? AND date < ? AND is_available = ?", dishName, start, end, true).
				First(&menuItem).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ConflictError(CodeNotAvailable, "Dish %q is not available today", dishName)
			}
			if err != nil {
				return fmt.Errorf("failed to load menu item: %w", err)
			}

			res := tx.Model(&models.MenuItem{}).
				Where("id = ? AND available_quantity >= ?", menuItem.ID, requested.Quantity).
				UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", requested.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to reserve stock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				var current models.MenuItem
				available := 0
				if tx.Select("available_quantity").First(&current, menuItem.ID).Error == nil {
					available = current.AvailableQuantity
				}
				return ConflictError(CodeInsufficientStock, "Insufficient quantity for %q. Available: %d", dishName, available)
			}

			price := decimal.NewFromFloat(menuItem.Price)
			subtotal := price.Mul(decimal.NewFromInt(int64(requested.Quantity)))
			total = total.Add(subtotal)

			order.Items = append(order.Items, models.OrderItem{
				MenuItemID: menuItem.ID,
				DishName:   menuItem.DishName,
				Quantity:   requested.Quantity,
				Price:      menuItem.Price,
				Subtotal:   subtotal.Round(2).InexactFloat64(),
			})
		}
		order.TotalAmount = total.Round(2).InexactFloat64()

		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	return order, nil
}

// TransitionStatus moves an order along the standard graph
func (s *OrderService) TransitionStatus(orderID string, next models.OrderStatus) (*models.Order, error) {
	var result *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if err := applyTransition(tx, order, models.StandardPolicy, next, nil); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reload(result.ID)
}

// CancelOrder lets the owner withdraw a pending, unpaid order and returns its stock
func (s *OrderService) CancelOrder(userID uint, orderID string) (*models.Order, error) {
	var id uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return NotFoundError("Order")
		}
		if order.PaymentStatus == models.PaymentPaid {
			return ConflictError(CodeCannotCancel, "Cannot cancel paid order. Please request a refund.")
		}
		if order.OrderStatus != models.OrderPending {
			return ConflictError(CodeCannotCancel, "Cannot cancel order. Order is already being processed.")
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND order_status = ? AND payment_status <> ?", order.ID, models.OrderPending, models.PaymentPaid).
			Update("order_status", models.OrderCancelled)
		if res.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ConflictError(CodeCannotCancel, "Cannot cancel order. Order is already being processed.")
		}
		if err := restoreStock(tx, order.Items); err != nil {
			return err
		}
		id = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues(string(models.OrderCancelled)).Inc()
	return s.reload(id)
}

// ListMyOrders returns a user's orders, newest first
func (s *OrderService) ListMyOrders(userID uint, status models.OrderStatus, page PageRequest) ([]models.Order, Pagination, error) {
	return s.list(OrderFilter{UserID: userID, Status: status}, page.Normalize(10), false)
}

// ListAllOrders returns every order matching filter, with owners, newest first
func (s *OrderService) ListAllOrders(filter OrderFilter, page PageRequest) ([]models.Order, Pagination, error) {
	return s.list(filter, page.Normalize(20), true)
}

// GetOrder returns an order to its owner, or to any viewer allowed to see all orders
func (s *OrderService) GetOrder(viewer *models.User, orderID string) (*models.Order, error) {
	order, err := findOrder(s.db.Preload("User"), orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != viewer.ID && !models.Can(viewer.Role, models.CapOrderViewAll) {
		return nil, NotFoundError("Order")
	}
	return order, nil
}

func (s *OrderService) list(filter OrderFilter, page PageRequest, withUser bool) ([]models.Order, Pagination, error) {
	q := s.db.Model(&models.Order{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("order_status = ?", filter.Status)
	}
	if filter.Date != nil {
		start, end := models.DayBounds(*filter.Date)
		q = q.Where("order_date >= ? AND order_date < ?", start, end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count orders: %w", err)
	}

	q = q.Preload("Items")
	if withUser {
		q = q.Preload("User")
	}
	var orders []models.Order
	if err := q.Order("order_date DESC").Offset(page.Offset()).Limit(page.Limit).Find(&orders).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, newPagination(page, total), nil
}

func (s *OrderService) reload(id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").Preload("User").First(&order, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	return &order, nil
}

// findOrder loads an order with its items by public id
func findOrder(db *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Items").Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFoundError("Order")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// applyTransition validates current -> next under policy and writes it only
// if the stored status is still current. Extra columns are written in the
// same statement. Cancellation returns reserved stock.
func applyTransition(tx *gorm.DB, order *models.Order, policy models.TransitionPolicy, next models.OrderStatus, extra map[string]interface{}) error {
	current := order.OrderStatus
	if err := models.ValidateTransition(policy, current, next); err != nil {
		return ConflictError(CodeInvalidTransition, "Cannot change order status from %s to %s", current, next)
	}

	updates := map[string]interface{}{"order_status": next}
	for k, v := range extra {
		updates[k] = v
	}
	if next == models.OrderServed {
		now := time.Now()
		updates["served_date"] = now
		order.ServedDate = &now
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND order_status = ?", order.ID, current).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ConflictError(CodeStatusChanged, "Order status changed, please retry")
	}

	if next == models.OrderCancelled {
		if err := restoreStock(tx, order.Items); err != nil {
			return err
		}
	}

	order.OrderStatus = next
	metrics.OrderTransitions.WithLabelValues(string(next)).Inc()
	return nil
}

func restoreStock(tx *gorm.DB, items []models.OrderItem) error {
	for _, item := range items {
		err := tx.Model(&models.MenuItem{}).
			Where("id = ?", item.MenuItemID).
			UpdateColumn("available_quantity", gorm.Expr("available_quantity + ?", item.Quantity)).Error
		if err != nil {
			return fmt.Errorf("failed to restore stock for %s: %w", item.DishName, err)
		}
	}
	return nil
}
