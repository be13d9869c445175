package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/checkin-agent/internal/api/http"
	"github.com/spec-kit/checkin-agent/internal/api/http/handlers"
	"github.com/spec-kit/checkin-agent/internal/auth"
	"github.com/spec-kit/checkin-agent/internal/config"
	"github.com/spec-kit/checkin-agent/internal/events"
	"github.com/spec-kit/checkin-agent/internal/geofence"
	"github.com/spec-kit/checkin-agent/internal/network"
	"github.com/spec-kit/checkin-agent/internal/observability"
	"github.com/spec-kit/checkin-agent/internal/persistence"
	"github.com/spec-kit/checkin-agent/internal/repository"
	"github.com/spec-kit/checkin-agent/internal/service"
	"github.com/spec-kit/checkin-agent/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Configured() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), "migrations", logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()
	store := persistence.NewKVStore(redis, cfg.Redis, logger)

	var (
		traceRepo    repository.TraceRepository
		accessedRepo repository.AccessedTraceRepository
	)
	if pg.Configured() {
		traceRepo = repository.NewTraceRepository(pg.PoolHandle())
		accessedRepo = repository.NewAccessedTraceRepository(pg.PoolHandle())
	} else {
		kv := repository.NewKVTraceRepository(store)
		traceRepo, accessedRepo = kv, kv
	}

	bridge := geofence.NewDeviceBridge()
	geofences := geofence.NewController(bridge, geofence.Options{
		Dwell:     cfg.Geofence.Dwell(),
		MinRadius: cfg.Geofence.MinRadiusMeters,
		MaxRadius: cfg.Geofence.MaxRadiusMeters,
	}, logger, metrics)
	defer geofences.Close()
	bridge.SetTransitionHandler(geofences.HandleTransition)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications, logger)

	accessClient := network.NewAccessClient(cfg.DataAccess.APIBaseURL, cfg.App.Version, &http.Client{})
	dataAccess := service.NewDataAccessService(service.DataAccessDependencies{
		TraceRepo:    traceRepo,
		AccessedRepo: accessedRepo,
		Fetcher:      accessClient,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
		Config:       cfg.DataAccess,
	})

	lifecycle := service.NewCheckInService(service.CheckInDependencies{
		Store:      store,
		Geofences:  geofences,
		Location:   bridge,
		Traces:     dataAccess,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
		Config:     cfg.CheckIn,
	})
	if err := lifecycle.Start(ctx); err != nil {
		logger.Fatal("failed to start check-in lifecycle", zap.Error(err))
	}
	defer lifecycle.Close()

	syncWorker := worker.NewAccessSyncWorker(dataAccess, cfg.DataAccess.SyncInterval(), logger)
	syncWorker.Start(ctx)
	defer syncWorker.Stop()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(tokens, cfg.Auth.PairingSecretHash),
		CheckIn:        handlers.NewCheckInHandler(lifecycle),
		DataAccess:     handlers.NewDataAccessHandler(dataAccess),
		Preferences:    handlers.NewPreferencesHandler(service.NewPreferencesService(store)),
		Notifications:  handlers.NewNotificationsHandler(notifications),
		Platform:       handlers.NewPlatformHandler(bridge, lifecycle),
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
