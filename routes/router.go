package routes

import (
	"slices"
	"time"

	"github.com/college-canteen/canteen-api/config"
	"github.com/college-canteen/canteen-api/controllers"
	"github.com/college-canteen/canteen-api/metrics"
	"github.com/college-canteen/canteen-api/middleware"
	"github.com/college-canteen/canteen-api/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the HTTP handler with every API route registered
func SetupRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(metrics.Middleware())
	router.Use(cors.New(corsConfig(cfg)))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authenticate := middleware.Authenticate(cfg)
	can := middleware.RequireCapability

	api := router.Group("/api")
	{
		api.GET("/health", controllers.HealthCheck)
		api.GET("/database/status", controllers.DatabaseStatus)

		auth := api.Group("/auth")
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/logout", authenticate, controllers.Logout)
			auth.GET("/profile", authenticate, controllers.GetProfile)
			auth.PUT("/profile", authenticate, controllers.UpdateProfile)
			auth.PUT("/password", authenticate, controllers.ChangePassword)
		}

		menu := api.Group("/menu")
		{
			// Public
			menu.GET("/today", controllers.GetTodayMenu)
			menu.GET("/date/:date", controllers.GetMenuByDate)

			// Kitchen management
			menu.GET("/manage/all", authenticate, can(models.CapMenuView), controllers.ListMenuItems)
			menu.POST("", authenticate, can(models.CapMenuWrite), controllers.CreateMenuItem)
			menu.PUT("/:id", authenticate, can(models.CapMenuWrite), controllers.UpdateMenuItem)
			menu.PATCH("/:id/toggle", authenticate, can(models.CapMenuWrite), controllers.ToggleMenuItem)
			menu.POST("/:id/image", authenticate, can(models.CapMenuWrite), controllers.UploadMenuImage)
			menu.DELETE("/:id", authenticate, can(models.CapMenuDelete), controllers.DeleteMenuItem)
		}

		orders := api.Group("/orders", authenticate)
		{
			orders.POST("", can(models.CapOrderPlace), controllers.CreateOrder)
			orders.GET("/my-orders", controllers.GetMyOrders)
			orders.GET("/manage/all", can(models.CapOrderViewAll), controllers.ListAllOrders)
			orders.GET("/:id", controllers.GetOrder)
			orders.GET("/:id/qr", controllers.GetOrderQR)
			orders.PATCH("/:id/cancel", controllers.CancelOrder)
			orders.PATCH("/:id/status", can(models.CapOrderManage), controllers.UpdateOrderStatus)
		}

		payments := api.Group("/payments", authenticate)
		{
			payments.POST("/create-order", can(models.CapOrderPlace), controllers.CreatePaymentOrder)
			payments.POST("/verify", can(models.CapOrderPlace), controllers.VerifyPayment)
			payments.GET("/history", controllers.GetPaymentHistory)
			payments.GET("/manage/all", can(models.CapPaymentViewAll), controllers.ListAllPayments)
			payments.GET("/:id", controllers.GetPayment)
			payments.POST("/:id/refund", can(models.CapPaymentRefund), controllers.RefundPayment)
		}

		staff := api.Group("/staff", authenticate, can(models.CapStaffCounter))
		{
			staff.POST("/verify-qr", controllers.VerifyQR)
			staff.PATCH("/:order_id/confirm", controllers.ConfirmOrder)
			staff.PATCH("/:order_id/serve", controllers.ServeOrder)
			staff.GET("/dashboard", controllers.GetDashboard)
			staff.GET("/order/:order_id", controllers.GetOrderDetails)
			staff.GET("/orders/pending", controllers.GetPendingOrders)
			staff.GET("/orders/served", controllers.GetServedOrders)
			staff.GET("/summary", controllers.GetDailySummary)
		}

		users := api.Group("/users", authenticate, can(models.CapUserAdmin))
		{
			users.POST("", controllers.CreateUser)
			users.GET("", controllers.ListUsers)
			users.GET("/stats/overview", controllers.GetUserStats)
			users.GET("/:id", controllers.GetUser)
			users.PUT("/:id", controllers.UpdateUser)
			users.DELETE("/:id", controllers.DeleteUser)
			users.PATCH("/:id/toggle", controllers.ToggleUserStatus)
			users.POST("/:id/reset-password", controllers.ResetUserPassword)
		}
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSAllowedOrigins) == 0 || slices.Contains(cfg.CORSAllowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return corsCfg
}
