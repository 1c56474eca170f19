package controllers

import (
	"net/http"
	"testing"

	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyQREndpoint(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, "STU100", "Asha", models.RoleStudent)
	staff := env.createUser(t, "STAFF1", "Counter Staff", models.RoleStaff)
	env.createMenuItem(t, "Masala Dosa", 50, 20, models.CategoryBreakfast)
	receipt := env.payOrder(t, student, env.createOrder(t, student, "Masala Dosa", 2))

	router := setupTestRouter(staff)
	router.POST("/api/staff/verify-qr", VerifyQR)

	t.Run("valid code", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPost, "/api/staff/verify-qr", map[string]interface{}{"qr_data": receipt.QRData})
		assertStatus(t, w, http.StatusOK)
		assert.Equal(t, receipt.Order.OrderID, response["order"].(map[string]interface{})["order_id"])
		assert.Equal(t, "STU100", response["customer"].(map[string]interface{})["college_id"])
		assert.Equal(t, "captured", response["payment"].(map[string]interface{})["status"])
		payload := response["qr_data"].(map[string]interface{})
		assert.Equal(t, "PAID", payload["payment_status"])
		assert.Equal(t, float64(100), payload["amount"])
	})

	t.Run("code signed with another key", func(t *testing.T) {
		order, err := services.NewOrderService(env.db).GetOrder(staff, receipt.Order.OrderID)
		require.NoError(t, err)
		forged, err := services.NewQRCodec("someone-else", true).Encode(services.BuildPayload(order, student, *receipt.Payment.PaymentTime))
		require.NoError(t, err)

		w, response := doRequest(t, router, http.MethodPost, "/api/staff/verify-qr", map[string]interface{}{"qr_data": forged})
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, services.CodeQRVerificationFailed, errorCode(response))
		assert.Equal(t, "QR code verification failed", response["message"])
	})

	t.Run("not JSON", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPost, "/api/staff/verify-qr", map[string]interface{}{"qr_data": "hello"})
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, services.CodeMalformedQR, errorCode(response))
	})

	t.Run("unknown order", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPost, "/api/staff/verify-qr", map[string]interface{}{"qr_data": `{"order_id":"ORD-GONE"}`})
		assertStatus(t, w, http.StatusNotFound)
		assert.Equal(t, services.CodeOrderNotFound, errorCode(response))
	})

	t.Run("missing qr_data", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPost, "/api/staff/verify-qr", map[string]interface{}{})
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "qr_data is required", fieldErrors(response)["qr_data"])
	})
}

func TestConfirmAndServeEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, "STU100", "Asha", models.RoleStudent)
	staff := env.createUser(t, "STAFF1", "Counter Staff", models.RoleStaff)
	env.createMenuItem(t, "Masala Dosa", 50, 20, models.CategoryBreakfast)
	unpaid := env.createOrder(t, student, "Masala Dosa", 1)
	paid := env.payOrder(t, student, env.createOrder(t, student, "Masala Dosa", 1)).Order

	router := setupTestRouter(staff)
	router.PATCH("/api/staff/:order_id/confirm", ConfirmOrder)
	router.PATCH("/api/staff/:order_id/serve", ServeOrder)

	t.Run("unpaid orders stay at the counter", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPatch, "/api/staff/"+unpaid.OrderID+"/confirm", nil)
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, services.CodeNotPaid, errorCode(response))

		w, response = doRequest(t, router, http.MethodPatch, "/api/staff/"+unpaid.OrderID+"/serve", nil)
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, services.CodeNotPaid, errorCode(response))
	})

	t.Run("pending order must be confirmed before serving", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPatch, "/api/staff/"+paid.OrderID+"/serve", nil)
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, services.CodeInvalidTransition, errorCode(response))
	})

	t.Run("confirm with notes", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPatch, "/api/staff/"+paid.OrderID+"/confirm", map[string]interface{}{"notes": "table 4"})
		assertStatus(t, w, http.StatusOK)
		order := response["order"].(map[string]interface{})
		assert.Equal(t, "confirmed", order["order_status"])
		assert.Contains(t, order["notes"], "table 4")
	})

	t.Run("confirm again is harmless", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPatch, "/api/staff/"+paid.OrderID+"/confirm", nil)
		assertStatus(t, w, http.StatusOK)
		assert.Equal(t, "confirmed", response["order"].(map[string]interface{})["order_status"])
	})

	t.Run("serve", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPatch, "/api/staff/"+paid.OrderID+"/serve", nil)
		assertStatus(t, w, http.StatusOK)
		order := response["order"].(map[string]interface{})
		assert.Equal(t, "served", order["order_status"])
		assert.NotNil(t, order["served_date"])
	})

	t.Run("serving twice is rejected", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodPatch, "/api/staff/"+paid.OrderID+"/serve", nil)
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, services.CodeAlreadyServed, errorCode(response))
	})
}

func TestStaffReportEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createUser(t, "STU100", "Asha", models.RoleStudent)
	staff := env.createUser(t, "STAFF1", "Counter Staff", models.RoleStaff)
	env.createMenuItem(t, "Masala Dosa", 50, 20, models.CategoryBreakfast)
	env.createMenuItem(t, "Iced Tea", 30, 50, models.CategoryBeverages)
	env.createOrder(t, student, "Masala Dosa", 1)
	paid := env.payOrder(t, student, env.createOrder(t, student, "Iced Tea", 3)).Order
	_, err := services.NewStaffService(env.db, qrCodec()).ConfirmOrder(paid.OrderID, "")
	require.NoError(t, err)

	router := setupTestRouter(staff)
	router.GET("/api/staff/dashboard", GetDashboard)
	router.GET("/api/staff/order/:order_id", GetOrderDetails)
	router.GET("/api/staff/orders/pending", GetPendingOrders)
	router.GET("/api/staff/orders/served", GetServedOrders)
	router.GET("/api/staff/summary", GetDailySummary)

	t.Run("dashboard", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodGet, "/api/staff/dashboard", nil)
		assertStatus(t, w, http.StatusOK)
		assert.Len(t, response["orders"], 2)
		stats := response["stats"].(map[string]interface{})
		assert.Equal(t, float64(2), stats["totalOrders"])
		assert.Equal(t, float64(1), stats["pending"])
		assert.Equal(t, float64(1), stats["confirmed"])
		assert.Equal(t, float64(90), stats["totalRevenue"])
	})

	t.Run("order details include the payment", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodGet, "/api/staff/order/"+paid.OrderID, nil)
		assertStatus(t, w, http.StatusOK)
		assert.Equal(t, "captured", response["payment"].(map[string]interface{})["status"])
	})

	t.Run("pending and served lists", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodGet, "/api/staff/orders/pending", nil)
		assertStatus(t, w, http.StatusOK)
		assert.Equal(t, float64(1), response["count"])

		w, response = doRequest(t, router, http.MethodGet, "/api/staff/orders/served", nil)
		assertStatus(t, w, http.StatusOK)
		assert.Equal(t, float64(0), response["count"])
	})

	t.Run("daily summary", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodGet, "/api/staff/summary", nil)
		assertStatus(t, w, http.StatusOK)
		summary := response["summary"].(map[string]interface{})
		assert.Equal(t, float64(2), summary["totalOrders"])
		assert.Equal(t, float64(1), summary["paidOrders"])
		topItems := summary["topItems"].([]interface{})
		require.Len(t, topItems, 2)
		assert.Equal(t, "Iced Tea", topItems[0].(map[string]interface{})["dish_name"])
	})

	t.Run("summary with a bad date", func(t *testing.T) {
		w, response := doRequest(t, router, http.MethodGet, "/api/staff/summary?date=tomorrow", nil)
		assertStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, services.CodeValidation, errorCode(response))
	})
}
