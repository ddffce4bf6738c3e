package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/application/statistics"
	tradeapp "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/carrier"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/export"
	"github.com/erp/fulfillment/internal/infrastructure/idgen"
	"github.com/erp/fulfillment/internal/infrastructure/lock"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	"github.com/erp/fulfillment/internal/infrastructure/notification"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/erp/fulfillment/migrations"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Fulfillment API
//	@version		1.0
//	@description	Multi-tenant stock ledger with order and purchase fulfillment.
//	@BasePath		/api/v1

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting fulfillment service",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	meter := provider.Meter("github.com/erp/fulfillment")

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Database.SlowThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		return err
	}

	if err := prepareSchema(cfg, db, log); err != nil {
		return err
	}

	serials, err := idgen.NewSnowflakeSerials(cfg.Ledger.SerialNode)
	if err != nil {
		return err
	}

	checks := map[string]handler.Pinger{
		"database": handler.PingerFunc(func(context.Context) error { return db.Ping() }),
	}

	var locker inventoryapp.StockLocker = lock.NewLocalStockLocker()
	if cfg.Ledger.DistributedLock {
		rdb, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedisStockLocker(rdb, cfg.Ledger.LockTTL, cfg.Ledger.LockWait, log)
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore()
	if err != nil {
		return err
	}
	defer func() { _ = idempotencyStore.Close() }()

	// Event bus and its subscribers
	bus := event.NewInMemoryEventBus(log)
	ledgerMetrics, err := telemetry.NewLedgerMetrics(meter)
	if err != nil {
		return err
	}
	bus.Subscribe(ledgerMetrics)
	bus.Subscribe(tradeapp.NewNotificationHandler(notification.NewLogNotifier(log), log).
		WithStockAlerts(cfg.Ledger.LowStockAlerts))

	var stats *statistics.Collector
	if cfg.Event.StatisticsEnabled {
		stats = statistics.NewCollector(cfg.Event.StatisticsBuffer, log)
		if err := stats.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = stats.Stop(context.Background()) }()
		bus.Subscribe(stats)
	}
	if err := bus.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = bus.Stop(stopCtx)
	}()

	// Repositories and services
	counterRepo := persistence.NewGormStockCounterRepository(db.DB)
	ledgerService := inventoryapp.NewStockLedgerService(
		counterRepo,
		persistence.NewGormLedgerEntryRepository(db.DB),
		persistence.NewGormDocumentRepository(db.DB),
		persistence.NewGormTransactionScope(db.DB),
		serials,
		log,
	)
	ledgerService.SetEventPublisher(bus)
	ledgerService.SetLocker(locker)
	ledgerService.SetRetryAttempts(cfg.Ledger.RetryAttempts)
	ledgerService.SetExporter(export.NewXLSXLedgerExporter(), cfg.Ledger.ExportMaxEntries)

	fulfillmentScope := persistence.NewGormFulfillmentScope(db.DB)
	orderService := tradeapp.NewOrderFulfillmentService(
		persistence.NewGormOrderRepository(db.DB), fulfillmentScope, serials, log)
	orderService.SetEventPublisher(bus)
	orderService.SetLocker(locker)
	orderService.SetRetryAttempts(cfg.Ledger.RetryAttempts)
	if cfg.HTTP.CarrierEndpoint != "" {
		gateway, err := carrier.NewHTTPGateway(cfg.HTTP.CarrierEndpoint, cfg.HTTP.CarrierTimeout, log)
		if err != nil {
			return err
		}
		orderService.SetCarrierGateway(gateway)
	}

	purchaseService := tradeapp.NewPurchaseFulfillmentService(
		persistence.NewGormPurchaseRepository(db.DB), fulfillmentScope, serials, log)
	purchaseService.SetEventPublisher(bus)
	purchaseService.SetLocker(locker)
	purchaseService.SetRetryAttempts(cfg.Ledger.RetryAttempts)

	if cfg.Reconcile.Enabled {
		stop, err := startReconcileSweep(ctx, cfg.Reconcile, ledgerService, counterRepo, ledgerMetrics, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	middleware.SetupValidator()

	handlers := router.Handlers{
		System:    handler.NewSystemHandler(version, checks),
		Inventory: handler.NewInventoryHandler(ledgerService),
		Orders:    handler.NewOrderHandler(orderService),
		Purchases: handler.NewPurchaseHandler(purchaseService),
	}
	if stats != nil {
		handlers.Statistics = handler.NewStatisticsHandler(stats)
	}

	engine, err := router.NewEngine(router.Config{
		ServiceName:      cfg.Telemetry.ServiceName,
		TracingEnabled:   cfg.Telemetry.Enabled,
		MaxBodySize:      cfg.HTTP.MaxBodySize,
		CORSAllowOrigins: cfg.HTTP.CORSAllowOrigins,
		CORSAllowHeaders: cfg.HTTP.CORSAllowHeaders,
		TrustedProxies:   cfg.HTTP.TrustedProxies,
		LogSkipPaths:     cfg.HTTP.RequestLogSkipped,
		IdempotencyStore: idempotencyStore,
		IdempotencyTTL:   cfg.HTTP.IdempotencyTTL,
		Meter:            meter,
		Logger:           log,
	}, handlers)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("Server exited gracefully")
	return nil
}

// startReconcileSweep replays every tenant's ledger on an interval. The
// returned function stops the trigger before the workers.
func startReconcileSweep(
	ctx context.Context,
	cfg config.ReconcileConfig,
	ledger scheduler.Reconciler,
	tenants scheduler.TenantProvider,
	metrics *telemetry.LedgerMetrics,
	log *zap.Logger,
) (func(), error) {
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.MaxConcurrentJobs = cfg.Workers
	schedCfg.JobTimeout = cfg.JobTimeout

	sched := scheduler.NewScheduler(schedCfg, ledger, log.Named("reconcile"))
	sched.OnJobDone(func(job *scheduler.Job) {
		inconsistent := 0
		if job.Report != nil {
			inconsistent = job.Report.Inconsistent
		}
		metrics.RecordReconciliation(ctx, inconsistent, job.Status == scheduler.JobStatusFailed)
	})
	if err := sched.Start(ctx); err != nil {
		return nil, err
	}

	trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
		Interval:   cfg.Interval,
		RunOnStart: true,
	}, sched, tenants, log.Named("reconcile"))
	if err := trigger.Start(ctx); err != nil {
		_ = sched.Stop(context.Background())
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = trigger.Stop(stopCtx)
		_ = sched.Stop(stopCtx)
	}, nil
}

// prepareSchema creates tables directly for sqlite or when AutoMigrate is
// set, and otherwise applies the embedded PostgreSQL migrations.
func prepareSchema(cfg *config.Config, db *persistence.Database, log *zap.Logger) error {
	if db.Driver() == "sqlite" || cfg.Database.AutoMigrate {
		log.Info("Creating schema with AutoMigrate")
		return db.AutoMigrate()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// the migrator shares sqlDB, so it is not closed here
	return m.Up()
}
