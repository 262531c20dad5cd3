package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/anvy22/taskboard/internal/api/http"
	"github.com/anvy22/taskboard/internal/api/http/handlers"
	"github.com/anvy22/taskboard/internal/auth"
	"github.com/anvy22/taskboard/internal/config"
	"github.com/anvy22/taskboard/internal/events"
	"github.com/anvy22/taskboard/internal/observability"
	"github.com/anvy22/taskboard/internal/persistence"
	"github.com/anvy22/taskboard/internal/realtime"
	"github.com/anvy22/taskboard/internal/repository"
	"github.com/anvy22/taskboard/internal/service"
	"github.com/anvy22/taskboard/internal/worker"
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

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	registry := realtime.NewRegistry()
	emitter := realtime.NewEmitter(registry, logger, metrics)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: userRepo})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		ActivityRepo: activityRepo,
		CommentRepo:  commentRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
	})
	commentService := service.NewCommentService(commentRepo, ticketService, activityRepo, dispatcher)
	notificationService := service.NewNotificationService(notificationRepo, emitter, redis.Handle(), logger)
	taskService := service.NewTaskService(taskRepo)

	notifier := service.NewNotifier(dispatcher, userRepo, notificationService, emitter, logger)
	worker.StartNotifier(notifier)

	authMiddleware := auth.NewAuthMiddleware(authService.Tokens(), userRepo)
	realtimeHandler := realtime.NewHandler(authService.Tokens(), userRepo, registry, emitter, logger, cfg.Realtime.PingInterval())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Tasks:          handlers.NewTasksHandler(taskService),
		BoardConfig:    handlers.NewBoardConfigHandler(cfg.Realtime),
		Realtime:       realtimeHandler,
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
