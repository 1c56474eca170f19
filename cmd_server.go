package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/college-canteen/canteen-api/config"
	"github.com/college-canteen/canteen-api/logger"
	"github.com/college-canteen/canteen-api/models"
	"github.com/college-canteen/canteen-api/routes"
	"github.com/college-canteen/canteen-api/services"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// canteen-api serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

// loadConfig reads and validates configuration, then installs the logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.GoEnv)
	config.SetConfig(cfg)
	return cfg, nil
}

// bootDB loads configuration and opens the migrated database
func bootDB() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := config.ConnectDatabase(cfg); err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(config.GetDB()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database migration completed")
	return cfg, nil
}

// initIntegrations installs the session store, the payment gateway and,
// when a bucket is configured, S3 image storage
func initIntegrations(cfg *config.Config) error {
	if _, err := services.InitSessionStore(cfg.RedisURL); err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	services.InitPaymentGateway(cfg)

	if !cfg.S3Enabled() {
		slog.Warn("AWS_S3_BUCKET not set, dish images and hosted QR codes are disabled")
		return nil
	}
	s3Service, err := services.InitS3Service(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize S3: %w", err)
	}
	services.InitImageService(s3Service)
	return nil
}

func runServer(ctx context.Context) error {
	cfg, err := bootDB()
	if err != nil {
		return err
	}
	if err := initIntegrations(cfg); err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server started", "addr", server.Addr, "env", cfg.GoEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if closer, ok := services.GetSessionStore().(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close session store", "error", err)
		}
	}
	slog.Info("server stopped")
	return nil
}
