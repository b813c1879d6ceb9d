package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/erp/posting/docs"
	appaccounting "github.com/erp/posting/internal/application/accounting"
	appevent "github.com/erp/posting/internal/application/event"
	"github.com/erp/posting/internal/domain/accounting"
	"github.com/erp/posting/internal/domain/shared"
	"github.com/erp/posting/internal/infrastructure/auth"
	"github.com/erp/posting/internal/infrastructure/cache"
	"github.com/erp/posting/internal/infrastructure/config"
	"github.com/erp/posting/internal/infrastructure/event"
	"github.com/erp/posting/internal/infrastructure/logger"
	"github.com/erp/posting/internal/infrastructure/persistence"
	"github.com/erp/posting/internal/infrastructure/telemetry"
	"github.com/erp/posting/internal/interfaces/http/handler"
	"github.com/erp/posting/internal/interfaces/http/middleware"
	"github.com/erp/posting/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

//	@title			GL Posting API
//	@version		1.0
//	@description	Double-entry general ledger posting engine: manual journal entries, chart of accounts, account mappings, event ingest and dead-letter administration.

//	@contact.name	Ledger Platform Team
//	@contact.url	https://github.com/erp/posting

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1/accounting

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// healthWindow is how far back the ledger health gauges look
const healthWindow = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry: traces, metrics, log export, profiling
	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.ConfigFromApp(cfg), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfigFromApp(cfg), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	loggerProvider, err := telemetry.NewLoggerProvider(rootCtx, telemetry.LogsConfigFromApp(cfg), log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer shutdown(log, "logger provider", loggerProvider.Shutdown)
	log = telemetry.BridgeLogger(log, loggerProvider, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfigFromApp(cfg), log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if cfg.Telemetry.SpanProfiles && profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles unavailable", zap.Error(err))
		}
	}

	log.Info("Starting GL posting service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")
	if err := db.RequireGuardIndexes(context.Background()); err != nil {
		log.Fatal("Ledger schema not ready", zap.Error(err))
	}

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFromApp(cfg.Telemetry), log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(rootCtx)
		defer dbMetrics.Stop()
	}

	postingMetrics, err := telemetry.NewPostingMetrics(meterProvider.Meter("gl-posting"), log)
	if err != nil {
		log.Fatal("Failed to create posting metrics", zap.Error(err))
	}

	// Settings cache, Redis when configured
	cacheBundle := cache.NewSettingsCache(rootCtx, cfg.Redis, cfg.Posting.SettingsCacheTTL, log)
	defer func() {
		if err := cacheBundle.Close(); err != nil {
			log.Error("Error closing settings cache", zap.Error(err))
		}
	}()
	if cacheBundle.Tiered != nil {
		go func() {
			if err := cacheBundle.Tiered.StartInvalidationSubscription(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("Settings invalidation subscription ended", zap.Error(err))
			}
		}()
	}

	// Event plumbing: serializer, outbox, transaction scope
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	consumerLedger := event.NewGormConsumerLedger(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// Application services
	policy := accounting.DefaultControlAccountPolicy()
	journalRepo := persistence.NewGormJournalRepository(db.DB)
	unmappedRepo := persistence.NewGormUnmappedEventRepository(db.DB)

	settingsService := appaccounting.NewSettingsService(txScope, cacheBundle.Cache, appaccounting.SettingsDefaults{
		BaseCurrency:           cfg.Posting.DefaultCurrency,
		RoundingToleranceMinor: cfg.Posting.RoundingToleranceMinor,
		MaxEventRetries:        cfg.Event.ConsumerMaxRetries,
	}, log)
	reversalService := appaccounting.NewReversalService(txScope, policy, postingMetrics, log)
	postingService := appaccounting.NewPostingService(txScope, journalRepo, reversalService, policy, postingMetrics, log)
	accountService := appaccounting.NewAccountService(txScope,
		persistence.NewGormAccountRepository(db.DB),
		persistence.NewGormAccountChangeLogRepository(db.DB),
		cacheBundle.Cache,
		log,
	)
	mappingService := appaccounting.NewMappingService(txScope, unmappedRepo, log)
	outboxService := appevent.NewOutboxService(outboxRepo, log)

	// Posting adapters behind the consumer ledger
	adapterDeps := appaccounting.AdapterDeps{
		TX:               txScope,
		Settings:         settingsService,
		Reversal:         reversalService,
		Policy:           policy,
		Recorder:         postingMetrics,
		Logger:           log,
		RoundingCapMinor: int64(cfg.Posting.AdapterRoundingCapMinor),
	}
	adapters := []shared.NamedEventHandler{
		appaccounting.NewTenderAdapter(adapterDeps),
		appaccounting.NewReturnAdapter(adapterDeps),
		appaccounting.NewVoidAdapter(adapterDeps),
		appaccounting.NewMembershipAdapter(adapterDeps),
		appaccounting.NewACHAdapter(adapterDeps),
	}

	eventBus := event.NewInMemoryEventBus(log, event.WithDispatchWrapper(telemetry.ProfileConsumer))
	consumers := make([]*event.ConsumerLedgerHandler, 0, len(adapters))
	replayTargets := make([]shared.EventHandler, 0, len(adapters))
	for _, adapter := range adapters {
		instrumented := telemetry.Instrument(adapter)
		consumer := event.NewConsumerLedgerHandler(instrumented, consumerLedger, eventSerializer, log,
			event.WithRetryBudget(settingsService),
			event.WithStaleClaimAfter(cfg.Event.ClaimTimeout),
			event.WithDeadLetterRecorder(postingMetrics),
		)
		eventBus.Subscribe(consumer)
		consumers = append(consumers, consumer)
		replayTargets = append(replayTargets, instrumented)
	}
	deadLetterService := appevent.NewDeadLetterService(consumerLedger, event.NewDeadLetterReplayer(eventSerializer, consumers...), log)

	// Replay re-runs the adapters directly; the source-reference index keeps it idempotent
	var replayer handler.EventReplayer
	if cfg.Event.ReplaySource != "" {
		source := event.NewFileRecordSource(cfg.Event.ReplaySource, eventSerializer)
		replayer = appaccounting.NewReplayService(source, log, replayTargets...)
		log.Info("Replay enabled", zap.String("source", cfg.Event.ReplaySource))
	}

	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	log.Info("Posting consumers subscribed", zap.Int("consumers", len(consumers)))

	if cfg.Event.ProcessorEnabled {
		processor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  time.Hour,
		}, log)
		if err := processor.Start(rootCtx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := processor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", cfg.Event.BatchSize),
			zap.Duration("poll_interval", cfg.Event.PollInterval),
		)
	}

	health := telemetry.NewHealthCollector(postingMetrics, telemetry.NewGormLedgerHealthProvider(db.DB), healthWindow, log)
	health.Start(rootCtx, cfg.Event.HealthInterval)
	defer health.Stop()

	// HTTP
	jwtService := auth.NewJWTService(cfg.JWT)
	middleware.SetupValidator()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	tracingConfig := middleware.DefaultTracingConfig()
	tracingConfig.ServiceName = cfg.Telemetry.ServiceName
	tracingConfig.Enabled = cfg.Telemetry.Enabled

	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = profiler.IsEnabled()

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.WriteTimeout))
	engine.Use(middleware.TracingWithConfig(tracingConfig))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
		Logger:        log,
	}))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, db)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)

	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Logger = log

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(jwtAuth, middleware.TenantMiddlewareWithConfig(tenantConfig), middleware.SpanEnricher())
	if cfg.HTTP.RateLimitEnabled {
		var limiter middleware.Limiter
		if cacheBundle.Redis != nil {
			limiter = cache.NewRedisRateLimiter(cacheBundle.Redis, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, log)
		} else {
			local := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
			defer local.Stop()
			limiter = local
		}
		r.Use(middleware.RateLimit(limiter))
	}
	r.Use(middleware.ProfilingWithConfig(profilingConfig))

	r.Register(accountingRoutes(routeHandlers{
		journals:    handler.NewJournalHandler(postingService, jwtService),
		accounts:    handler.NewAccountHandler(accountService),
		settings:    handler.NewSettingsHandler(settingsService),
		mappings:    handler.NewMappingHandler(mappingService),
		events:      handler.NewEventHandler(event.NewInbox(db.DB, outboxPublisher, eventSerializer, log), replayer),
		deadLetters: handler.NewDeadLetterHandler(deadLetterService),
		outbox:      handler.NewOutboxHandler(outboxService),
		system:      systemHandler,
	}))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	log.Info("Server exited gracefully")
}

// shutdown flushes a telemetry provider with a bounded wait
func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
