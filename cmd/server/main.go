// Package main - точка входа HTTP API движка нетворкинга SIPORTS.
//
// Движок подбирает участникам портовой конференции релевантных партнёров:
// скоринг совместимости пар, ранжированные рекомендации, поиск по фильтрам
// и жизненный цикл запросов на контакт.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: PostgreSQL, Redis, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/epitaphe360/siport-sub000/config"

	// Domain layer
	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"

	// Application layer
	"github.com/epitaphe360/siport-sub000/internal/application"
	"github.com/epitaphe360/siport-sub000/internal/application/eventhandler"
	"github.com/epitaphe360/siport-sub000/internal/application/query"

	// Infrastructure layer
	"github.com/epitaphe360/siport-sub000/internal/infrastructure/messaging"
	"github.com/epitaphe360/siport-sub000/internal/infrastructure/persistence/postgres"
	"github.com/epitaphe360/siport-sub000/internal/infrastructure/persistence/redis"
	"github.com/epitaphe360/siport-sub000/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/epitaphe360/siport-sub000/internal/interface/http"
	"github.com/epitaphe360/siport-sub000/internal/interface/http/handlers"

	// Packages
	"github.com/epitaphe360/siport-sub000/pkg/logger"
	"github.com/epitaphe360/siport-sub000/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting SIPORTS match engine",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// Структурированный JSON-логгер для HTTP и application слоёв
	httpLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	err = retry.Do(ctx, retry.Config{
		MaxAttempts:  cfg.Database.ConnectRetries,
		InitialDelay: cfg.Database.ConnectRetryDelay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			log.Warn("database connection failed, retrying",
				"attempt", attempt, "error", err)
		},
	}, func(ctx context.Context) error {
		var connErr error
		dbConn, connErr = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		return connErr
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		cache, err = redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	profileRepo := postgres.NewProfileRepository(dbConn)
	edgeRepo := postgres.NewEdgeRepository(dbConn)

	var profiles matching.ProfileStore = profileRepo
	if cache != nil {
		profiles = redis.NewCachedProfileStore(profileRepo, cache)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ DOMAIN СЕРВИСОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing matching engine...")

	scorer, err := matching.NewScorer(matching.WithWeights(matching.FactorWeights{
		Sector:        cfg.Matching.SectorWeight,
		Objective:     cfg.Matching.ObjectiveWeight,
		Geographic:    cfg.Matching.GeoWeight,
		Experience:    cfg.Matching.ExperienceWeight,
		Collaboration: cfg.Matching.CollabWeight,
	}))
	if err != nil {
		return fmt.Errorf("invalid matching weights: %w", err)
	}

	var graph matching.RelationshipGraph
	if cfg.Features.IsEnabled(config.FeatureMatchingMutualConnections, nil) {
		graph = service.NewGuardedRelationshipGraph(postgres.NewRelationshipGraph(dbConn), nil)
	}

	ranker := matching.NewRanker(scorer, graph)
	lifecycle := matching.NewLifecycleManager(edgeRepo, uuid.NewString)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...", "backend", cfg.Events.Backend)

	localBusConfig := messaging.DefaultInMemoryEventBusConfig()
	localBusConfig.Logger = log
	localBusConfig.WorkerPoolSize = cfg.Events.WorkerPoolSize

	var eventBus shared.EventBus
	if cfg.Events.Backend == "redis" && cache != nil {
		redisBus, busErr := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(cache.Client()),
			ChannelName:    cfg.Events.Channel,
			LocalBusConfig: localBusConfig,
			Logger:         log,
		})
		if busErr != nil {
			return fmt.Errorf("failed to create redis event bus: %w", busErr)
		}
		defer func() {
			log.Info("closing event bus...")
			_ = redisBus.Close()
		}()
		eventBus = redisBus
	} else {
		if cfg.Events.Backend == "redis" {
			log.Warn("redis event bus requested but Redis is unavailable, using in-memory bus")
		}
		memBus := messaging.NewInMemoryEventBus(localBusConfig)
		defer func() {
			log.Info("closing event bus...")
			_ = memBus.Close()
		}()
		eventBus = memBus
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. РЕГИСТРАЦИЯ EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	var recCache *redis.RecommendationCache
	var queryCache query.RecommendationCache
	var invalidator eventhandler.RecommendationInvalidator
	if cache != nil && cfg.Features.IsEnabled(config.FeatureMatchingRecommendationCache, nil) {
		recCache = redis.NewRecommendationCache(cache).WithTTL(cfg.Matching.CacheTTL)
		queryCache = recCache
		invalidator = recCache
	}

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		EventBus:              eventBus,
		WorkerPoolSize:        cfg.Events.WorkerPoolSize,
		RetryConfig:           messaging.DefaultRetryConfig(),
		EnableDeadLetterQueue: true,
		DeadLetterQueueSize:   1000,
		Logger:                log,
	})
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	// Кэшированные списки содержат статус связи и флаг избранного, поэтому
	// кэш сбрасывается на каждом событии жизненного цикла, не только на accept.
	changedHandler := eventhandler.NewOnConnectionChangedHandler(invalidator, httpLog)
	for _, eventType := range eventhandler.InvalidationEventTypes {
		if err := dispatcher.Register(eventType, "invalidate-recommendations", changedHandler.Handle); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	engine, err := application.NewEngine(application.EngineDeps{
		Profiles:  profiles,
		Scorer:    scorer,
		Ranker:    ranker,
		Lifecycle: lifecycle,
		Graph:     graph,
		Cache:     queryCache,
		Publisher: eventBus,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if cache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(cache))
	}

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.EnableMetrics = cfg.Observability.MetricsEnabled
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpConfig.APIKeys = cfg.HTTP.APIKeys

	httpDeps := httpserver.Dependencies{
		GetRecommendationsHandler: engine.Recommendations,
		SearchParticipantsHandler: engine.Search,
		GetCompatibilityHandler:   engine.Compatibility,
		GetConnectionsHandler:     engine.Connections,

		SendConnectionRequestHandler:   engine.SendRequest,
		AcceptConnectionRequestHandler: engine.AcceptRequest,
		RejectConnectionRequestHandler: engine.RejectRequest,
		FavoriteParticipantHandler:     engine.Favorite,

		Logger:        httpLog,
		HealthChecker: healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 12. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("SIPORTS match engine is running",
		"http_address", httpServer.Address(),
		"events_backend", cfg.Events.Backend,
		"caching", cache != nil,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Dispatcher, event bus, Redis и база данных закроются через defer

	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger настраивает slog для инфраструктурного слоя.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
