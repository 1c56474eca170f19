package controllers

import (
	"net/http"

	"github.com/college-canteen/canteen-api/middleware"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/college-canteen/canteen-api/utils"
	"github.com/gin-gonic/gin"
)

// CreatePaymentOrderRequest represents the request body for starting checkout
type CreatePaymentOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// VerifyPaymentRequest is the checkout callback the client forwards after paying
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	PaymentID         string `json:"payment_id" binding:"required"`
}

// RefundRequest represents the request body for refunding a payment
type RefundRequest struct {
	RefundAmount float64 `json:"refund_amount" binding:"required,gt=0"`
	Reason       string  `json:"reason" binding:"max=500"`
}

// CreatePaymentOrder handles POST /api/payments/create-order - opens a gateway order
func CreatePaymentOrder(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req CreatePaymentOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	intent, err := paymentService().CreatePaymentIntent(c.Request.Context(), user, req.OrderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Payment order created successfully",
		"payment":        intent.Payment,
		"razorpay_order": intent.GatewayOrder,
		"key_id":         currentConfig().RazorpayKeyID,
	})
}

// VerifyPayment handles POST /api/payments/verify - captures a signed checkout
func VerifyPayment(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	receipt, err := paymentService().VerifyPayment(c.Request.Context(), user, services.VerifyPaymentInput{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
		PaymentID:        req.PaymentID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	response := gin.H{
		"success": true,
		"message": "Payment verified successfully",
		"payment": receipt.Payment,
		"order":   receipt.Order,
		"qr_data": receipt.QRData,
		"qr_code": receipt.QRCode,
	}
	if receipt.QRCodeURL != "" {
		response["qr_code_url"] = receipt.QRCodeURL
	}
	c.JSON(http.StatusOK, response)
}

// GetPaymentHistory handles GET /api/payments/history - the caller's payments
func GetPaymentHistory(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	payments, pagination, err := paymentService().History(user.ID, models.TransactionStatus(c.Query("status")), pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Payment history retrieved successfully",
		"payments":   payments,
		"pagination": pagination,
	})
}

// GetPayment handles GET /api/payments/:id
func GetPayment(c *gin.Context) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information")
		return
	}

	payment, err := paymentService().GetPayment(user, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment retrieved successfully",
		"payment": payment,
	})
}

// RefundPayment handles POST /api/payments/:id/refund (admin)
func RefundPayment(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	payment, err := paymentService().Refund(c.Request.Context(), c.Param("id"), req.RefundAmount, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Refund processed successfully",
		"payment": payment,
	})
}

// ListAllPayments handles GET /api/payments/manage/all - filtered by ?status= and ?date=
func ListAllPayments(c *gin.Context) {
	date, err := utils.ParseOptionalDate(c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, services.CodeValidation, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	filter := services.PaymentFilter{Status: models.TransactionStatus(c.Query("status")), Date: date}
	payments, pagination, err := paymentService().ListAll(filter, pageRequest(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Payments retrieved successfully",
		"payments":   payments,
		"pagination": pagination,
	})
}
