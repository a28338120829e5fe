package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/dafibh/revledger/revledger-backend/docs"
	"github.com/dafibh/revledger/revledger-backend/internal/amqp"
	"github.com/dafibh/revledger/revledger-backend/internal/bootstrap"
	"github.com/dafibh/revledger/revledger-backend/internal/config"
	"github.com/dafibh/revledger/revledger-backend/internal/handler"
	"github.com/dafibh/revledger/revledger-backend/internal/logger"
	"github.com/dafibh/revledger/revledger-backend/internal/middleware"
	"github.com/dafibh/revledger/revledger-backend/internal/service"
	"github.com/dafibh/revledger/revledger-backend/internal/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/sync/errgroup"
)

// @title Revenue Ledger API
// @version 1.0
// @description Monthly revenue aggregates maintained from invoice lifecycle events.
// @BasePath /api/v1
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	// Live updates
	hub := websocket.NewHub()
	services.Events.SetEventPublisher(hub)
	services.Queries.SetEventPublisher(hub)

	// Initialize handlers
	revenueHandler := handler.NewRevenueHandler(services.Queries, cfg.ReportWindowMonths)
	invoiceEventHandler := handler.NewInvoiceEventHandler(services.Events)
	wsHandler := handler.NewWebSocketHandler(hub, cfg.CORSOrigins)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		MaxAge:       86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	// Request logging and HTTP metrics
	e.Use(middleware.RequestLogger(logger.WithComponent("http")))
	e.Use(middleware.NewHTTPMetrics(services.Registry).Middleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		if err := services.Pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Metrics and API docs
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(services.Registry, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/openapi.json", handler.NewOpenAPIHandler(cfg.OpenAPIServers).Serve)

	// Register API routes behind the per-client rate limiter
	rateLimiter := middleware.NewRateLimiterWithConfig(cfg.RateLimitPerMin, cfg.RateLimitBurst)
	defer rateLimiter.Stop()
	handler.RegisterRoutes(e, revenueHandler, invoiceEventHandler, wsHandler, middleware.RateLimitMiddleware(rateLimiter))

	reconcileWorker := service.NewReconcileWorker(services.Queries, logger.WithComponent("reconcile"), service.ReconcileWorkerConfig{
		Interval:     cfg.ReconcileInterval,
		WindowMonths: cfg.ReportWindowMonths,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if services.Queue != nil {
		consumer := amqp.NewConsumer(services.Events, services.DeadLetterSink, logger.WithComponent("invoice_consumer"))
		g.Go(func() error {
			log.Info().Str("queue", cfg.AMQP.Queue).Msg("Consuming invoice events")
			return services.Queue.ConsumeInvoiceEvents(gctx, consumer)
		})
	} else {
		log.Info().Msg("AMQP_URL not set, invoice events accepted over HTTP only")
	}

	g.Go(func() error {
		reconcileWorker.Start(gctx)
		<-gctx.Done()
		reconcileWorker.Stop()
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
