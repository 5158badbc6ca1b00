package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpme/helpdesk/internal/access"
	httptransport "github.com/helpme/helpdesk/internal/api/http"
	"github.com/helpme/helpdesk/internal/api/http/handlers"
	"github.com/helpme/helpdesk/internal/auth"
	"github.com/helpme/helpdesk/internal/chat"
	"github.com/helpme/helpdesk/internal/config"
	"github.com/helpme/helpdesk/internal/events"
	"github.com/helpme/helpdesk/internal/observability"
	"github.com/helpme/helpdesk/internal/persistence"
	"github.com/helpme/helpdesk/internal/repository"
	"github.com/helpme/helpdesk/internal/service"
	"github.com/helpme/helpdesk/internal/storage"
	"github.com/helpme/helpdesk/internal/worker"
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
	orgRepo := repository.NewOrganizationRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	faqRepo := repository.NewFAQRepository(pool)

	accessService := access.NewService()
	dispatcher := events.NewInMemoryDispatcher()

	var relay chat.Relay
	switch cfg.Chat.Relay {
	case "redis":
		relay = chat.NewRedisRelay(redis.Client, logger)
	default:
		relay = chat.NewHub()
	}

	fileStore, err := storage.NewLocalStore(cfg.Storage.BaseDir)
	if err != nil {
		logger.Fatal("failed to init file store", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		OrganizationRepo:  orgRepo,
		ProfileRepo:       profileRepo,
		PasswordResetRepo: resetRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		Access:         accessService,
		Dispatcher:     dispatcher,
	})
	chatService := service.NewChatService(service.ChatDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		AttachmentRepo: attachmentRepo,
		Access:         accessService,
		Files:          fileStore,
		Relay:          relay,
		Dispatcher:     dispatcher,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	})
	notificationService := service.NewNotificationService(notificationRepo, userRepo, dispatcher, logger, cfg.Notification)
	faqService := service.NewFAQService(faqRepo)

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	chatHandler := chat.NewHandler(ticketRepo, accessService, relay, chatService, logger, cfg.Chat.SendBufferSize)

	metrics := observability.NewMetrics()

	// Body limit follows the effective upload ceiling (the service applies
	// the default when config leaves it unset), with headroom for the
	// multipart envelope.
	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(chatService.MaxUploadBytes()) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService, profileRepo),
		Tickets:        handlers.NewTicketsHandler(ticketService, chatService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		FAQs:           handlers.NewFAQsHandler(faqService),
		Files:          handlers.NewFilesHandler(chatService),
		Chat:           chatHandler,
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
