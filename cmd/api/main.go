package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-br/helpdesk-service/internal/api/http"
	"github.com/helpdesk-br/helpdesk-service/internal/api/http/handlers"
	"github.com/helpdesk-br/helpdesk-service/internal/auth"
	"github.com/helpdesk-br/helpdesk-service/internal/config"
	"github.com/helpdesk-br/helpdesk-service/internal/events"
	"github.com/helpdesk-br/helpdesk-service/internal/observability"
	"github.com/helpdesk-br/helpdesk-service/internal/persistence"
	"github.com/helpdesk-br/helpdesk-service/internal/repository"
	"github.com/helpdesk-br/helpdesk-service/internal/service"
	"github.com/helpdesk-br/helpdesk-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	assetRepo := repository.NewAssetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	if cfg.AMQP.URL != "" {
		publisher := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, logger)
		for _, eventType := range []events.EventType{
			events.EventTicketCreated,
			events.EventTicketStatusChanged,
			events.EventTicketAssigned,
			events.EventTicketCommentAdded,
			events.EventTicketDeleted,
		} {
			dispatcher.Subscribe(eventType, publisher.HandleEvent)
		}
	}

	notificationQueue := worker.NewNotificationWorker(256, 2, func(ctx context.Context, n worker.Notification) error {
		// Mail delivery is stubbed; the structured log is the outbox.
		logger.Info("notification",
			zap.String("from", cfg.Notification.EmailFrom),
			zap.String("recipient", n.Recipient),
			zap.String("subject", n.Subject),
			zap.String("body", n.Body))
		return nil
	}, logger)
	notificationQueue.Start(ctx)
	defer notificationQueue.Stop()

	notificationService := service.NewNotificationService(ticketRepo, userRepo, notificationQueue, logger)
	notificationService.Register(dispatcher)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Tokens:            tokenManager,
		Notifications:     notificationQueue,
		BcryptCost:        cfg.Auth.BcryptCost,
		ResetTTL:          time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		CommentRepo:  commentRepo,
		CategoryRepo: categoryRepo,
		UserRepo:     userRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
	})
	categoryService := service.NewCategoryService(categoryRepo)
	assetService := service.NewAssetService(assetRepo, userRepo)
	metricsService := service.NewMetricsService(service.MetricsDependencies{
		TicketRepo:   ticketRepo,
		CategoryRepo: categoryRepo,
		UserRepo:     userRepo,
		Cache:        redis.ClientHandle(),
		CacheTTL:     cfg.Metrics.CacheTTL(),
		Logger:       logger,
	})

	authMiddleware := auth.NewAuthMiddleware(tokenManager, userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Metrics:        handlers.NewMetricsHandler(metricsService),
		Assets:         handlers.NewAssetsHandler(assetService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
