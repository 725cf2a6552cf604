package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/lankaconnect/support-service/internal/api/http"
	"github.com/lankaconnect/support-service/internal/api/http/handlers"
	"github.com/lankaconnect/support-service/internal/auth"
	"github.com/lankaconnect/support-service/internal/cache"
	"github.com/lankaconnect/support-service/internal/config"
	"github.com/lankaconnect/support-service/internal/events"
	"github.com/lankaconnect/support-service/internal/observability"
	"github.com/lankaconnect/support-service/internal/persistence"
	"github.com/lankaconnect/support-service/internal/repository"
	"github.com/lankaconnect/support-service/internal/service"
	"github.com/lankaconnect/support-service/internal/worker"
)

func main() {
	configPath := flag.StringP("config", "c", "", "path to a YAML config file (defaults to $APP_CONFIG_FILE)")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations || *migrateOnly {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if *migrateOnly {
		return
	}

	var stores repository.Provider
	if pool := pg.PoolHandle(); pool != nil {
		stores = repository.NewPostgresProvider(pool)
	} else {
		stores = repository.NewMemoryDB()
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	var ticketCache *cache.Cache
	if cfg.Cache.Enabled {
		ticketCache = cache.New(redis.Client, logger)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger, metrics)

	auditService := service.NewAuditService(stores, logger)
	supportService := service.NewSupportService(service.SupportDependencies{
		Stores:     stores,
		Dispatcher: dispatcher,
		Audit:      auditService,
		Cache:      ticketCache,
		Metrics:    metrics,
		Logger:     logger,
		TicketTTL:  cfg.Cache.TicketTTL(),
		StatsTTL:   cfg.Cache.StatsTTL(),
	})

	// Audit entries are written inside Publish; webhooks and Kafka run on the
	// background pool.
	background := worker.NewBackground(dispatcher, logger, metrics, 0, 0)
	worker.StartAuditWorker(dispatcher, service.NewAuditEventHandler(auditService))
	worker.StartNotificationWorker(service.NewNotificationService(background, logger, cfg.Notification))

	var publisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			logger.Fatal("failed to configure kafka", zap.Error(err))
		}
		defer publisher.Close() //nolint:errcheck
		logger.Info("forwarding ticket events to kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
	}
	worker.StartEventForwarder(background, publisher)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:           handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Contact:          handlers.NewContactHandler(supportService),
		Tickets:          handlers.NewSupportTicketsHandler(supportService),
		AuditLogs:        handlers.NewAuditLogsHandler(auditService),
		AuthMiddleware:   auth.NewAuthMiddleware(tokens),
		Metrics:          metrics.Handler(),
		ContactRateLimit: cfg.App.ContactRateLimit,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(cfg.App.ShutdownTimeout()); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	background.Close()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
