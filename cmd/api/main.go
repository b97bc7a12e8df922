package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"briefcase/internal/config"
	"briefcase/internal/crypto"
	"briefcase/internal/database"
	"briefcase/internal/database/migration"
	handlers "briefcase/internal/http/handler"
	"briefcase/internal/http/middleware"
	"briefcase/internal/otel"
	"briefcase/internal/repository/postgres"
	"briefcase/internal/service"
	"briefcase/internal/storage"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// OTLP tracing bootstrap (no-op unless OTEL_* env is set)
	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize tracing")
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
		logrus.WithError(err).Fatal("failed to run migrations")
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize object storage")
	}

	// Cipher engine; an empty secret falls back to an ephemeral dev-only key
	engine, err := crypto.NewEngine(cfg.Encryption.Secret)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize cipher engine")
	}

	// Repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	userRepo := postgres.NewUserPostgres(db)
	docSvc := service.NewDocumentService(docRepo, objStore, nil)
	authSvc := service.NewAuthService(userRepo, cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTokenTTLMin)*time.Minute, nil)
	exchangeSvc := service.NewExchangeService(engine, objStore, docSvc, userRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.MaxFileSize,
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	reg := prometheus.NewRegistry()
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to register metrics")
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, authSvc, docSvc, exchangeSvc)

	// Expired-document sweeper runs for the lifetime of the process
	sweeper := service.NewSweeper(docSvc, time.Duration(cfg.Sweep.IntervalSec)*time.Second)
	go sweeper.Run(ctx)

	go func() {
		<-ctx.Done()
		logrus.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("failed to start server")
	}
}
