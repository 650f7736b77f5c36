package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/formgate/formgate/internal/config"
	"github.com/formgate/formgate/internal/database"
	"github.com/formgate/formgate/internal/handler"
	"github.com/formgate/formgate/internal/logging"
	"github.com/formgate/formgate/internal/middleware"
	"github.com/formgate/formgate/internal/models"
	"github.com/formgate/formgate/internal/ratelimit"
	"github.com/formgate/formgate/internal/repository"
	"github.com/formgate/formgate/internal/router"
	"github.com/formgate/formgate/internal/service"
	"github.com/formgate/formgate/internal/spam"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, logBuffer := logging.New(cfg.LogLevel, cfg.LogBufferSize)

	var repo repository.SubmissionRepository
	if cfg.DatabaseURL != "" {
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.ContactSubmission{}); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		repo = repository.NewSubmissionRepository(db)
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
	}

	spamOpts, err := spam.LoadOptions(cfg.SpamOptionsFile)
	if err != nil {
		log.Fatalf("failed to load spam options: %v", err)
	}
	if len(cfg.SpamForbiddenWords) > 0 {
		spamOpts.ForbiddenWords = cfg.SpamForbiddenWords
	}
	if cfg.HoneypotField != "" {
		spamOpts.HoneypotField = cfg.HoneypotField
		spamOpts.HoneypotValue = cfg.HoneypotValue
	}

	detector, err := spam.NewDetector(spamOpts, logger)
	if err != nil {
		log.Fatalf("failed to build spam detector: %v", err)
	}

	var rateStore ratelimit.Store
	if cfg.RateLimitStore == "redis" {
		rateStore = ratelimit.NewRedisStore(cache, "formgate:ratelimit")
	} else {
		rateStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(ratelimit.Config{
		Window:      cfg.RateLimitWindow,
		MaxRequests: cfg.RateLimitMax,
		KeyPrefix:   cfg.RateLimitKeyPrefix,
	}, rateStore, logger)

	method, err := service.ParseMethod(cfg.SubmitMethod)
	if err != nil {
		log.Fatalf("invalid submit method: %v", err)
	}

	var strategy service.Strategy
	switch method {
	case service.MethodAPI:
		strategy = service.NewAPIStrategy(cfg.APIEndpoint, logger)
	case service.MethodStore:
		strategy = service.NewStoreStrategy(repo)
	case service.MethodMail:
		// Headless processes have no mail client; the strategy fails fast
		// unless an opener is injected, which only client builds do.
		strategy = service.NewMailStrategy(cfg.MailAddress, nil)
	}

	var notifier service.NotificationSink
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		notifier = service.NewNATSNotificationSink(conn, cfg.NATSSubject, logger)
	} else {
		notifier = service.NewLogNotificationSink(logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	dispatcher := service.NewDispatcher(
		service.DispatcherConfig{
			Method:          method,
			NotifyRecipient: cfg.NotifyRecipient,
			DedupeTTL:       cfg.DedupeTTL,
		},
		service.DispatcherDeps{
			Validator: service.NewSubmissionValidator(validate),
			Detector:  detector,
			Limiter:   limiter,
			Strategy:  strategy,
			Notifier:  notifier,
			Store:     repo,
			Cache:     cache,
		},
		logger,
	)

	submitHandler := handler.NewSubmitHandler(dispatcher, spamOpts.HoneypotField, logger)
	diagnosticsHandler := handler.NewDiagnosticsHandler(logBuffer, limiter, logger)

	var adminHandler *handler.AdminSubmissionHandler
	if repo != nil {
		adminService := service.NewAdminSubmissionService(repo, logger)
		adminHandler = handler.NewAdminSubmissionHandler(adminService, validate, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmitHandler:          submitHandler,
		AdminSubmissionHandler: adminHandler,
		DiagnosticsHandler:     diagnosticsHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Str("method", string(method)).Msg("formgate started")

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
