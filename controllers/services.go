package controllers

import (
	"github.com/college-canteen/canteen-api/config"
	"github.com/college-canteen/canteen-api/services"
)

// Handlers build their services per request from the process-wide
// database, configuration and integration singletons.

func currentConfig() *config.Config {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{QRRequireSignature: true, PaymentCurrency: "INR"}
}

func qrCodec() *services.QRCodec {
	cfg := currentConfig()
	return services.NewQRCodec(cfg.QRSigningSecret, cfg.QRRequireSignature)
}

func authService() *services.AuthService {
	return services.NewAuthService(config.GetDB(), services.GetSessionStore(), currentConfig())
}

func userService() *services.UserService {
	return services.NewUserService(config.GetDB(), services.GetSessionStore(), currentConfig().DefaultUserPassword)
}

func menuService() *services.MenuService {
	return services.NewMenuService(config.GetDB(), services.GetImageService())
}

func orderService() *services.OrderService {
	return services.NewOrderService(config.GetDB())
}

func paymentService() *services.PaymentService {
	cfg := currentConfig()
	return services.NewPaymentService(
		config.GetDB(),
		services.GetPaymentGateway(),
		qrCodec(),
		services.GetImageService(),
		cfg.RazorpayKeySecret,
		cfg.PaymentCurrency,
	)
}

func staffService() *services.StaffService {
	return services.NewStaffService(config.GetDB(), qrCodec())
}
