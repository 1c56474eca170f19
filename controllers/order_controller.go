package controllers

import (
	"net/http"

	"github.com/college-canteen/canteen-api/middleware"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/college-canteen/canteen-api/utils"
	"github.com/gin-gonic/gin"
)

// OrderItemRequest is one line of an order request. Prices are always taken
// from the menu, never from the client.
type OrderItemRequest struct {
	DishName string `json:"dish_name" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest represents the request body for placing an order
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes string             `json:"notes" binding:"max=500"`
}

// UpdateOrderStatusRequest represents the request body for moving an order along
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,order_status"`
}

// CreateOrder handles POST /api/orders - places an order against today's menu
func CreateOrder(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	items := make([]services.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.OrderItemInput{DishName: item.DishName, Quantity: item.Quantity})
	}

	order, err := orderService().CreateOrder(user.ID, items, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created successfully",
		"order":   order,
	})
}

// GetMyOrders handles GET /api/orders/my-orders - the caller's orders, newest first
func GetMyOrders(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	orders, pagination, err := orderService().ListMyOrders(user.ID, models.OrderStatus(c.Query("status")), pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Orders retrieved successfully",
		"orders":     orders,
		"pagination": pagination,
	})
}

// GetOrder handles GET /api/orders/:id
// Owners see their own orders; staff and admins may view any
func GetOrder(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	order, err := orderService().GetOrder(user, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order retrieved successfully",
		"order":   order,
	})
}

// GetOrderQR handles GET /api/orders/:id/qr - the pickup code as a PNG image
func GetOrderQR(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	_, png, err := paymentService().OrderQRCode(user, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// CancelOrder handles PATCH /api/orders/:id/cancel - owner withdraws an unpaid pending order
func CancelOrder(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	order, err := orderService().CancelOrder(user.ID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

// UpdateOrderStatus handles PATCH /api/orders/:id/status (staff, admin)
func UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := orderService().TransitionStatus(c.Param("id"), models.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order status updated successfully",
		"order":   order,
	})
}

// ListAllOrders handles GET /api/orders/manage/all - filtered by ?status= and ?date=
func ListAllOrders(c *gin.Context) {
	date, err := utils.ParseOptionalDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	filter := services.OrderFilter{Status: models.OrderStatus(c.Query("status")), Date: date}
	orders, pagination, err := orderService().ListAllOrders(filter, pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Orders retrieved successfully",
		"orders":     orders,
		"pagination": pagination,
	})
}
