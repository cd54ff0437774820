package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mauv0809/analista/internal/config"
	"github.com/mauv0809/analista/internal/handlers"
	"github.com/mauv0809/analista/internal/logging"
	"github.com/mauv0809/analista/internal/pipeline"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	// Load configuration (.env, TOML, environment)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	sentry, err := logging.SetupSentry(cfg.Sentry.DSN, cfg.Environment, version)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer sentry.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pipeline and optional archive
	svc, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("building pipeline", zap.Error(err))
	}
	defer svc.Close()

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error == nil {
				logger.Info("request", fields...)
			} else {
				sentry.Capture(v.Error, c.Param("ticker"))
				logger.Error("request", append(fields, zap.Error(v.Error))...)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Setup handlers; a nil repository disables the archive routes
	var store handlers.Store
	if svc.Repository != nil {
		store = svc.Repository
	} else {
		logger.Warn("DATABASE_URL not set or unreachable, archive endpoints disabled")
	}
	h := handlers.New(store, svc.Runner, logger.Named("handlers"))

	// Static files
	e.Static("/assets", "assets")

	// Routes
	e.GET("/health", h.Health)
	e.GET("/", h.Index)
	e.GET("/status", h.Status)
	e.GET("/reports/:ticker", h.ReportView)
	e.GET("/analysis/:ticker", h.AnalysisJSON)
	e.POST("/analysis/:ticker", h.RunAnalysis)

	// Start server
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutting down server", zap.Error(err))
	}
}
