package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/crm-whatsapp/crm-service/internal/api/http"
	"github.com/crm-whatsapp/crm-service/internal/api/http/handlers"
	"github.com/crm-whatsapp/crm-service/internal/auth"
	"github.com/crm-whatsapp/crm-service/internal/cache"
	"github.com/crm-whatsapp/crm-service/internal/composer"
	"github.com/crm-whatsapp/crm-service/internal/config"
	"github.com/crm-whatsapp/crm-service/internal/events"
	"github.com/crm-whatsapp/crm-service/internal/llm"
	"github.com/crm-whatsapp/crm-service/internal/observability"
	"github.com/crm-whatsapp/crm-service/internal/outreach"
	"github.com/crm-whatsapp/crm-service/internal/persistence"
	"github.com/crm-whatsapp/crm-service/internal/repository"
	"github.com/crm-whatsapp/crm-service/internal/repository/memory"
	"github.com/crm-whatsapp/crm-service/internal/service"
	"github.com/crm-whatsapp/crm-service/internal/session"
)

type repositories struct {
	operators repository.OperatorRepository
	clients   repository.ClientRepository
	activity  repository.ActivityRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dependencies := map[string]handlers.Pinger{"redis": redis}
	var repos repositories
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		repos = repositories{
			operators: memory.NewOperatorRepository(),
			clients:   memory.NewClientRepository(),
			activity:  memory.NewActivityRepository(),
		}
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if _, err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		pool := pg.PoolHandle()
		repos = repositories{
			operators: repository.NewOperatorRepository(pool),
			clients:   repository.NewClientRepository(pool),
			activity:  repository.NewActivityRepository(pool),
		}
		dependencies["postgres"] = pg
	}

	metrics := observability.NewMetrics()
	readCache := cache.NewRedisCache(redis.Client, cfg.App.Name, cfg.Cache.TTL())
	sessions := session.NewRedisStore(redis.Client, cfg.App.Name)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	dispatcher := events.NewInMemoryDispatcher(logger)
	service.NewActivityRecorder(dispatcher, repos.activity, readCache, logger).RegisterHandlers()

	var generator composer.Generator
	if cfg.LLM.APIKey != "" {
		generator = llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout(),
		}, logger)
	} else {
		logger.Warn("LLM_API_KEY not set; outreach messages use the fallback template")
	}

	authService := service.NewAuthService(service.AuthDependencies{
		OperatorRepo: repos.operators,
		Sessions:     sessions,
		Tokens:       tokens,
		Dispatcher:   dispatcher,
		Logger:       logger,
		BcryptCost:   cfg.Auth.BcryptCost,
	})
	clientService := service.NewClientService(service.ClientDependencies{
		ClientRepo: repos.clients,
		Cache:      readCache,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	outreachService := service.NewOutreachService(service.OutreachDependencies{
		Clients:  clientService,
		Composer: composer.New(generator, logger),
		Links:    outreach.NewLinkBuilder(cfg.Outreach.BaseURL, cfg.Outreach.CountryCode),
		Sessions: sessions,
		Logger:   logger,
	})
	operatorService := service.NewOperatorService(service.OperatorDependencies{
		OperatorRepo: repos.operators,
		Cache:        readCache,
		Dispatcher:   dispatcher,
		Logger:       logger,
		BcryptCost:   cfg.Auth.BcryptCost,
		HardDelete:   cfg.Policy.OperatorHardDelete,
	})
	activityService := service.NewActivityService(repos.activity, readCache, logger)

	if _, err := operatorService.EnsureAdmin(ctx, cfg.Auth.BootstrapAdminUser, cfg.Auth.BootstrapAdminPass); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Auth:           handlers.NewAuthHandler(authService, service.NewSessionService(sessions, clientService)),
		Clients:        handlers.NewClientsHandler(clientService, outreachService),
		Operators:      handlers.NewOperatorsHandler(operatorService, activityService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions, repos.operators),
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
