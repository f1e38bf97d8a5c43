package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-service/internal/api/http"
	"github.com/spec-kit/ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/ticket-service/internal/auth"
	"github.com/spec-kit/ticket-service/internal/config"
	"github.com/spec-kit/ticket-service/internal/crypto"
	"github.com/spec-kit/ticket-service/internal/events"
	"github.com/spec-kit/ticket-service/internal/observability"
	"github.com/spec-kit/ticket-service/internal/persistence"
	"github.com/spec-kit/ticket-service/internal/ratelimit"
	"github.com/spec-kit/ticket-service/internal/repository"
	"github.com/spec-kit/ticket-service/internal/service"
	"github.com/spec-kit/ticket-service/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
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

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	// Refresh token revocation must survive restarts; fall back to the
	// in-process store only when Redis is unreachable at boot.
	var tokenStore repository.RefreshTokenStore
	if err := rdb.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory refresh token store", zap.Error(err))
		tokenStore = repository.NewMemoryRefreshTokenStore()
	} else {
		tokenStore = repository.NewRedisRefreshTokenStore(rdb.Client)
	}

	limiter := ratelimit.NewLoginLimiter(rdb.Client, cfg.RateLimit, logger)
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo:       accountRepo,
		PasswordResetRepo: resetRepo,
		TokenStore:        tokenStore,
		Limiter:           limiter,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})

	cipher, err := crypto.NewCipher(cfg.Crypto, logger)
	if err != nil {
		logger.Fatal("failed to init cipher", zap.Error(err))
	}
	ticketService := service.NewTicketService(ticketRepo, cipher, authService.Authorizer(), dispatcher)

	notificationService := service.NewNotificationService(dispatcher, logger)
	notificationService.RegisterHandlers()

	authMiddleware := auth.NewMiddleware(authService.TokenService(), accountRepo, authService.Authorizer())

	var chatVerifier, ticketingVerifier *webhook.Verifier
	if cfg.Webhook.ChatSecret != "" {
		chatVerifier = webhook.NewVerifier(cfg.Webhook.ChatSecret, cfg.Webhook.MaxSkew())
	}
	if cfg.Webhook.TicketingSecret != "" {
		ticketingVerifier = webhook.NewVerifier(cfg.Webhook.TicketingSecret, cfg.Webhook.MaxSkew())
	}

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Accounts:       handlers.NewAccountsHandler(authService),
		Webhooks:       handlers.NewWebhooksHandler(chatVerifier, ticketingVerifier, dispatcher, logger),
		Tickets:        handlers.NewTicketsHandler(ticketService),
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
