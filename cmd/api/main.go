package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"outpost/internal/config"
	"outpost/internal/dal"
	"outpost/internal/edgar"
	handlers "outpost/internal/http/handler"
	"outpost/internal/http/middleware"
	"outpost/internal/llm"
	"outpost/internal/otel"
	"outpost/internal/storage"
	"outpost/internal/tenant"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	// Tenant databases open lazily on first request; nothing to connect here.
	tenants := tenant.NewManager(cfg.Pool, log)
	dispatcher := dal.NewDispatcher(tenants, log, time.Duration(cfg.DAL.OperationTimeoutSec)*time.Second)

	deps := handlers.Dependencies{
		DAL:     dispatcher,
		Tenants: tenants,
		SEC:     edgar.NewClient(cfg.Edgar),
	}

	if cfg.MinIO.Endpoint != "" {
		blobs, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatal("failed to initialize object storage", zap.Error(err))
		}
		deps.Blobs = blobs
	} else {
		log.Warn("blob endpoints disabled: MINIO_ENDPOINT not set")
	}

	if cfg.LLM.APIKey != "" {
		model, err := llm.NewGemini(ctx, cfg.LLM)
		if err != nil {
			log.Fatal("failed to initialize language model client", zap.Error(err))
		}
		deps.LLM = model
	} else {
		log.Warn("llm endpoint disabled: GEMINI_API_KEY not set")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(otelfiber.Middleware())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("failed to initialize metrics", zap.Error(err))
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, deps)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown failed", zap.Error(err))
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}

	// Listen returned: drain the rest in order.
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(shutCtx); err != nil {
		log.Error("tracing shutdown failed", zap.Error(err))
	}
	if err := tenants.Close(); err != nil {
		log.Error("tenant shutdown failed", zap.Error(err))
	}
}
