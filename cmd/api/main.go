package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/societyops/society-service/internal/api/http"
	"github.com/societyops/society-service/internal/api/http/handlers"
	"github.com/societyops/society-service/internal/auth"
	"github.com/societyops/society-service/internal/config"
	"github.com/societyops/society-service/internal/events"
	"github.com/societyops/society-service/internal/observability"
	"github.com/societyops/society-service/internal/persistence"
	"github.com/societyops/society-service/internal/repository"
	"github.com/societyops/society-service/internal/service"
	"github.com/societyops/society-service/internal/worker"
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
	technicianRepo := repository.NewTechnicianRepository(pool)
	issueRepo := repository.NewIssueRepository(pool)
	billRepo := repository.NewBillRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo: userRepo,
		Tokens:   tokens,
		Config:   cfg.Auth,
		Logger:   logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)

	directory := service.NewDirectoryService(technicianRepo, redis, logger, cfg.Assignment.DirectoryCacheTTL())
	notifications := service.NewNotificationService(issueRepo, logger)
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  issueRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		IssueRepo:       issueRepo,
		Directory:       directory,
		Dispatcher:      dispatcher,
		Channel:         notifications,
		Logger:          logger,
		ConflictRetries: cfg.Assignment.ConflictRetries,
	})
	billingService := service.NewBillingService(service.BillingDependencies{
		BillRepo:    billRepo,
		Cache:       redis,
		AnalysisTTL: cfg.Assignment.AnalysisCacheTTL(),
		Logger:      logger,
	})

	worker.StartNotificationWorker(notifications, dispatcher)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Issues:         handlers.NewIssuesHandler(issueService),
		Assignments:    handlers.NewAssignmentHandler(assignmentService),
		Technicians:    handlers.NewTechniciansHandler(directory),
		Bills:          handlers.NewBillsHandler(billingService),
		Notifications:  handlers.NewNotificationsHandler(notifications),
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
