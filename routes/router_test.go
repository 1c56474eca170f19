package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/college-canteen/canteen-api/config"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testKeySecret = "rzp_router_secret"

func TestMain(m *testing.M) {
	if os.Getenv("GO_ENV") == "" {
		os.Setenv("GO_ENV", "test")
	}
	gin.SetMode(gin.TestMode)
	services.PasswordHashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		GoEnv:               "test",
		JWTSecret:           "router-test-secret",
		JWTIssuer:           "canteen-api",
		JWTAudience:         "canteen-portal",
		JWTTTL:              time.Hour,
		RazorpayKeyID:       "rzp_router_key",
		RazorpayKeySecret:   testKeySecret,
		PaymentCurrency:     "INR",
		QRSigningSecret:     "router-qr-secret",
		QRRequireSignature:  true,
		DefaultUserPassword: "temp123",
		CORSAllowedOrigins:  []string{"http://localhost:3000"},
	}
}

// setupApp wires a full router over an in-memory database with the memory
// session store and the mock gateway
func setupApp(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))

	cfg := testConfig()
	config.SetDB(db)
	config.SetConfig(cfg)
	services.NewMemorySessionStore().SetAsMockForTesting()
	services.NewMockPaymentGateway().SetAsMockForTesting()
	services.SetImageService(nil)

	t.Cleanup(func() {
		services.SetSessionStore(nil)
		services.SetPaymentGateway(nil)
		config.SetConfig(nil)
		config.SetDB(nil)
		sqlDB.Close()
	})

	for _, u := range []struct {
		collegeID, name string
		role            models.Role
	}{
		{"STU100", "Asha", models.RoleStudent},
		{"STAFF1", "Counter Staff", models.RoleStaff},
		{"ADMIN1", "Admin", models.RoleAdmin},
	} {
		hash, err := services.HashPassword("secret123")
		require.NoError(t, err)
		require.NoError(t, db.Create(&models.User{
			Name:         u.name,
			CollegeID:    u.collegeID,
			Email:        u.collegeID + "@college.test",
			Role:         u.role,
			Status:       models.UserActive,
			PasswordHash: hash,
		}).Error)
	}
	require.NoError(t, db.Create(&models.MenuItem{
		DishName:          "Masala Dosa",
		Price:             50,
		AvailableQuantity: 20,
		Category:          models.CategoryBreakfast,
		Date:              models.StartOfDay(time.Now()),
		IsAvailable:       true,
	}).Error)

	return SetupRouter(cfg), db
}

func call(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

func login(t *testing.T, router *gin.Engine, collegeID string) string {
	t.Helper()

	w, response := call(t, router, http.MethodPost, "/api/auth/login", "", map[string]interface{}{
		"college_id": collegeID,
		"password":   "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return response["token"].(string)
}

func errorCode(response map[string]interface{}) string {
	errObj, _ := response["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

func TestOrderToPickupFlow(t *testing.T) {
	router, db := setupApp(t)
	student := login(t, router, "STU100")
	staff := login(t, router, "STAFF1")

	w, response := call(t, router, http.MethodGet, "/api/menu/today", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["menu"].(map[string]interface{})["breakfast"], 1)

	w, response = call(t, router, http.MethodPost, "/api/orders", student, map[string]interface{}{
		"items": []map[string]interface{}{{"dish_name": "Masala Dosa", "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := response["order"].(map[string]interface{})["order_id"].(string)

	w, response = call(t, router, http.MethodPost, "/api/payments/create-order", student, map[string]interface{}{"order_id": orderID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	gatewayOrderID := response["razorpay_order"].(map[string]interface{})["id"].(string)
	paymentID := response["payment"].(map[string]interface{})["payment_id"].(string)

	w, response = call(t, router, http.MethodPost, "/api/payments/verify", student, map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": "pay_router1",
		"razorpay_signature":  services.PaymentSignature(testKeySecret, gatewayOrderID, "pay_router1"),
		"payment_id":          paymentID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	qrData := response["qr_data"].(string)

	w, response = call(t, router, http.MethodPost, "/api/staff/verify-qr", staff, map[string]interface{}{"qr_data": qrData})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "STU100", response["customer"].(map[string]interface{})["college_id"])

	w, _ = call(t, router, http.MethodPatch, "/api/staff/"+orderID+"/confirm", staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, response = call(t, router, http.MethodPatch, "/api/staff/"+orderID+"/serve", staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "served", response["order"].(map[string]interface{})["order_status"])

	var stored models.Order
	require.NoError(t, db.Where("order_id = ?", orderID).First(&stored).Error)
	assert.Equal(t, models.OrderServed, stored.OrderStatus)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)

	w, response = call(t, router, http.MethodGet, "/api/orders/my-orders", student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["orders"], 1)
}

func TestAccessControl(t *testing.T) {
	router, _ := setupApp(t)
	student := login(t, router, "STU100")
	staff := login(t, router, "STAFF1")
	admin := login(t, router, "ADMIN1")

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
		expectedError  string
	}{
		{"No token", http.MethodGet, "/api/orders/my-orders", "", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"Garbage token", http.MethodGet, "/api/orders/my-orders", "not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"Student on user admin", http.MethodGet, "/api/users", student, http.StatusForbidden, "FORBIDDEN"},
		{"Student on the counter", http.MethodGet, "/api/staff/dashboard", student, http.StatusForbidden, "FORBIDDEN"},
		{"Student on the kitchen menu", http.MethodGet, "/api/menu/manage/all", student, http.StatusForbidden, "FORBIDDEN"},
		{"Staff cannot delete dishes", http.MethodDelete, "/api/menu/1", staff, http.StatusForbidden, "FORBIDDEN"},
		{"Staff cannot refund", http.MethodPost, "/api/payments/PAY-1/refund", staff, http.StatusForbidden, "FORBIDDEN"},
		{"Staff on the counter", http.MethodGet, "/api/staff/dashboard", staff, http.StatusOK, ""},
		{"Admin on user admin", http.MethodGet, "/api/users", admin, http.StatusOK, ""},
		{"Admin stats route wins over id", http.MethodGet, "/api/users/stats/overview", admin, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := call(t, router, tt.method, tt.path, tt.token, nil)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(response))
			}
		})
	}
}

func TestLogoutEndsTheSession(t *testing.T) {
	router, _ := setupApp(t)
	token := login(t, router, "STU100")

	w, _ := call(t, router, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, router, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, response := call(t, router, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SESSION_EXPIRED", errorCode(response))
}

func TestOperationalEndpoints(t *testing.T) {
	router, _ := setupApp(t)

	w, response := call(t, router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, response["success"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = call(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "canteen_http_requests_total")

	req := httptest.NewRequest(http.MethodOptions, "/api/menu/today", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	preflight := httptest.NewRecorder()
	router.ServeHTTP(preflight, req)
	assert.Equal(t, "http://localhost:3000", preflight.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig(&config.Config{})
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)

	wildcard := corsConfig(&config.Config{CORSAllowedOrigins: []string{"*"}})
	assert.True(t, wildcard.AllowAllOrigins)

	listed := corsConfig(&config.Config{CORSAllowedOrigins: []string{"https://canteen.college.edu"}})
	assert.False(t, listed.AllowAllOrigins)
	assert.True(t, listed.AllowCredentials)
	assert.Equal(t, []string{"https://canteen.college.edu"}, listed.AllowOrigins)
}
