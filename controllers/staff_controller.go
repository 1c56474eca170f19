package controllers

import (
	"net/http"
	"time"

	"github.com/college-canteen/canteen-api/services"
	"github.com/college-canteen/canteen-api/utils"
	"github.com/gin-gonic/gin"
)

// VerifyQRRequest carries the raw text read from a pickup code
type VerifyQRRequest struct {
	QRData string `json:"qr_data" binding:"required"`
}

// ConfirmOrderRequest represents the optional body of a counter confirmation
type ConfirmOrderRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// VerifyQR handles POST /api/staff/verify-qr - matches a scanned code to its order
func VerifyQR(c *gin.Context) {
	var req VerifyQRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := staffService().VerifyQR(req.QRData)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "QR code verified successfully",
		"order":    result.Order,
		"customer": result.Customer,
		"payment":  result.Payment,
		"qr_data":  result.QRData,
	})
}

// ConfirmOrder handles PATCH /api/staff/:order_id/confirm
func ConfirmOrder(c *gin.Context) {
	var req ConfirmOrderRequest
	// The body is optional; an empty one confirms without notes
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
	}

	order, err := staffService().ConfirmOrder(c.Param("order_id"), req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order confirmed successfully",
		"order":   order,
	})
}

// ServeOrder handles PATCH /api/staff/:order_id/serve - hands the order over
func ServeOrder(c *gin.Context) {
	order, err := staffService().ServeOrder(c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order served successfully",
		"order":   order,
	})
}

// GetDashboard handles GET /api/staff/dashboard - today's orders and counters
func GetDashboard(c *gin.Context) {
	dashboard, err := staffService().Dashboard()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Dashboard data retrieved successfully",
		"orders":  dashboard.Orders,
		"stats":   dashboard.Stats,
	})
}

// GetOrderDetails handles GET /api/staff/order/:order_id
func GetOrderDetails(c *gin.Context) {
	order, payment, err := staffService().OrderDetails(c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order details retrieved successfully",
		"order":   order,
		"payment": payment,
	})
}

// GetPendingOrders handles GET /api/staff/orders/pending - paid orders still to hand over
func GetPendingOrders(c *gin.Context) {
	orders, err := staffService().PendingOrders()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Pending orders retrieved successfully",
		"orders":  orders,
		"count":   len(orders),
	})
}

// GetServedOrders handles GET /api/staff/orders/served
func GetServedOrders(c *gin.Context) {
	orders, err := staffService().ServedOrders()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Served orders retrieved successfully",
		"orders":  orders,
		"count":   len(orders),
	})
}

// GetDailySummary handles GET /api/staff/summary?date=YYYY-MM-DD, defaulting to today
func GetDailySummary(c *gin.Context) {
	day := time.Now()
	if value := c.Query("date"); value != "" {
		parsed, err := utils.ParseDate(value)
		if err != nil {
			respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid date format. Use YYYY-MM-DD")
			return
		}
		day = parsed
	}

	summary, err := staffService().DailySummary(day)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Daily summary retrieved successfully",
		"summary": summary,
	})
}
