package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rental-service/internal/app"
	"rental-service/internal/handler"
	mid "rental-service/internal/middleware"
	"rental-service/pkg/config"
	"rental-service/pkg/logger"
	"rental-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "rental-service"

func main() {
	// Load configuration
	appConfig, err := config.Load(serviceName)
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting "+serviceName, appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database and services
	a, err := app.New(ctx, appConfig, log, mid.WithSkipper(func(c echo.Context) bool {
		p := c.Request().URL.Path
		return p == "/metrics" || p == "/health" || strings.HasPrefix(p, "/api/health")
	}))
	if err != nil {
		log.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer a.Close()

	if err := a.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database migrated")

	e := newServer(a)

	go func() {
		port := appConfig.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newServer(a *app.App) *echo.Echo {
	cfg := a.Config

	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.Server.Env == "development"

	v := handler.NewValidator()
	e.Validator = v
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(v)

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)
	e.Use(logger.AccessLog(a.Location))
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.Server.CORSOrigin},
		AllowCredentials: true,
	}))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	e.Use(middleware.Gzip())
	e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Timeout: cfg.Server.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Path(), "/api/backup/download")
		},
	}))
	e.Use(a.Gate.ClientTimezone())
	e.Use(a.Gate.AccessWindow())
	e.Use(a.Gate.BackupWindow())
	e.Use(a.Gate.HolidayFlag())

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Static("/uploads", cfg.Server.UploadsDir)

	handler.New(cfg, a.Services, a.Notifier, a.QR, a.Backups, a.Gate).Register(e)
	return e
}
