package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/college-canteen/canteen-api/config"
	"github.com/college-canteen/canteen-api/middleware"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testKeySecret = "rzp_test_secret"

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
		JWTSecret:           "controller-test-secret",
		JWTIssuer:           "canteen-api",
		JWTAudience:         "canteen-portal",
		JWTTTL:              time.Hour,
		RazorpayKeyID:       "rzp_test_key",
		RazorpayKeySecret:   testKeySecret,
		PaymentCurrency:     "INR",
		QRSigningSecret:     "controller-qr-secret",
		QRRequireSignature:  true,
		DefaultUserPassword: "temp123",
	}
}

// testEnv wires a fresh in-memory database and mock integrations into the
// globals the handlers read
type testEnv struct {
	db       *gorm.DB
	sessions *services.MemorySessionStore
	gateway  *services.MockPaymentGateway
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "Failed to connect to test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")

	env := &testEnv{
		db:       db,
		sessions: services.NewMemorySessionStore(),
		gateway:  services.NewMockPaymentGateway(),
	}
	config.SetDB(db)
	config.SetConfig(testConfig())
	env.sessions.SetAsMockForTesting()
	env.gateway.SetAsMockForTesting()
	services.SetImageService(nil)

	t.Cleanup(func() {
		services.SetSessionStore(nil)
		services.SetPaymentGateway(nil)
		services.SetImageService(nil)
		config.SetConfig(nil)
		sqlDB.Close()
	})
	return env
}

func (e *testEnv) createUser(t *testing.T, collegeID, name string, role models.Role) *models.User {
	t.Helper()

	hash, err := services.HashPassword("secret123")
	require.NoError(t, err)
	user := &models.User{
		Name:         name,
		CollegeID:    collegeID,
		Email:        strings.ToLower(collegeID) + "@college.test",
		Role:         role,
		Status:       models.UserActive,
		PasswordHash: hash,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createMenuItem(t *testing.T, dishName string, price float64, quantity int, category models.Category) *models.MenuItem {
	t.Helper()

	item := &models.MenuItem{
		DishName:          dishName,
		Price:             price,
		AvailableQuantity: quantity,
		Category:          category,
		Date:              models.StartOfDay(time.Now()),
		IsAvailable:       true,
	}
	require.NoError(t, e.db.Create(item).Error)
	return item
}

func (e *testEnv) createOrder(t *testing.T, user *models.User, dishName string, quantity int) *models.Order {
	t.Helper()

	order, err := services.NewOrderService(e.db).CreateOrder(user.ID,
		[]services.OrderItemInput{{DishName: dishName, Quantity: quantity}}, "")
	require.NoError(t, err)
	return order
}

// payOrder drives an order through checkout and a correctly signed capture
func (e *testEnv) payOrder(t *testing.T, user *models.User, order *models.Order) *services.PaymentReceipt {
	t.Helper()

	payments := paymentService()
	intent, err := payments.CreatePaymentIntent(t.Context(), user, order.OrderID)
	require.NoError(t, err)

	receipt, err := payments.VerifyPayment(t.Context(), user, services.VerifyPaymentInput{
		GatewayOrderID:   intent.GatewayOrder.ID,
		GatewayPaymentID: "pay_ctrl1",
		Signature:        services.PaymentSignature(testKeySecret, intent.GatewayOrder.ID, "pay_ctrl1"),
		PaymentID:        intent.Payment.PaymentID,
	})
	require.NoError(t, err)
	return receipt
}

// mockAuthMiddleware sets up the context exactly as Authenticate does
func mockAuthMiddleware(user *models.User, sessionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUser, user)
		c.Set(middleware.ContextUserID, user.ID)
		c.Set(middleware.ContextSessionID, sessionID)
		c.Next()
	}
}

func setupTestRouter(user *models.User) *gin.Engine {
	router := gin.New()
	if user != nil {
		router.Use(mockAuthMiddleware(user, "test-session"))
	}
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	}
	return w, response
}

func errorCode(response map[string]interface{}) string {
	errObj, _ := response["error"].(map[string]interface{})
	code, _ := errObj["code"].(string)
	return code
}

func fieldErrors(response map[string]interface{}) map[string]string {
	fields := map[string]string{}
	list, _ := response["errors"].([]interface{})
	for _, entry := range list {
		fe := entry.(map[string]interface{})
		fields[fe["field"].(string)] = fe["message"].(string)
	}
	return fields
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	require.Equal(t, expected, w.Code, "unexpected status, body: %s", w.Body.String())
}
