package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"docsend/docs"
	"docsend/internal/config"
	"docsend/internal/database"
	"docsend/internal/database/migration"
	"docsend/internal/events"
	handlers "docsend/internal/http/handler"
	"docsend/internal/http/middleware"
	"docsend/internal/logger"
	"docsend/internal/mail"
	"docsend/internal/metrics"
	"docsend/internal/model"
	"docsend/internal/otel"
	"docsend/internal/repository/postgres"
	"docsend/internal/service"
	"docsend/internal/storage"
)

// @title Document Delivery API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logger.New(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Initialize the object storage backend (MinIO or S3/R2)
	objStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	dispatcher, err := mail.NewRouter(cfg.Mail, httpClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mail dispatcher")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Events.URL != "" {
		amqpPub, err := events.NewAMQP(cfg.Events)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to event broker")
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deliveryMetrics, err := metrics.NewDelivery(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register delivery metrics")
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	// Initialize repositories and services
	profileRepo := postgres.NewProfilePostgres(db)
	profileSvc, err := service.NewProfileService(objStore, profileRepo, service.ProfileOptions{
		ReferenceMode: cfg.Storage.ReferenceMode,
		PublicRoot:    cfg.Storage.PublicRoot,
		Clock:         clock.WallClock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid storage reference configuration")
	}
	resolver := service.NewAccessResolver(objStore, cfg.Storage.PublicRoot,
		time.Duration(cfg.Delivery.SignedLinkTTLSec)*time.Second, clock.WallClock)
	deliverySvc := service.NewDeliveryService(profileRepo, resolver, dispatcher, service.DeliveryOptions{
		DefaultMode:          model.DeliveryMode(cfg.Delivery.Mode),
		From:                 cfg.Mail.From,
		Subject:              cfg.Mail.Subject,
		MaxAttachmentBytes:   cfg.Delivery.MaxAttachmentBytes,
		FetchClient:          &http.Client{Transport: httpClient.Transport, Timeout: time.Duration(cfg.Delivery.FetchTimeoutSec) * time.Second},
		HistoryWriteAttempts: cfg.Delivery.HistoryWriteAttempts,
		Clock:                clock.WallClock,
		Events:               publisher,
		Metrics:              deliveryMetrics,
		Logger:               log,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Storage.MaxUploadBytes,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	app.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// Structured request logs through zerolog
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, reg, profileSvc, deliverySvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("storage", cfg.Storage.Backend).Str("mail", cfg.Mail.Provider).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
