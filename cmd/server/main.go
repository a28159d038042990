package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/mfgorder/backend/internal/application/inventory"
	"github.com/mfgorder/backend/internal/infrastructure/cache"
	"github.com/mfgorder/backend/internal/infrastructure/config"
	"github.com/mfgorder/backend/internal/infrastructure/logger"
	"github.com/mfgorder/backend/internal/infrastructure/persistence"
	"github.com/mfgorder/backend/internal/infrastructure/scheduler"
	"github.com/mfgorder/backend/internal/infrastructure/storage"
	"github.com/mfgorder/backend/internal/infrastructure/telemetry"
	"github.com/mfgorder/backend/internal/interfaces/http/handler"
	"github.com/mfgorder/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

//	@title			Stock Ledger API
//	@version		1.0
//	@description	Warehouse stock ledger: batch allocation, restoration and packing-list export reconciliation.

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telCfg := telemetry.FromConfig(cfg.Telemetry)

	// The log exporter has to exist before the real logger so it can be teed in.
	logProvider, err := telemetry.NewLoggerProvider(ctx, telCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log, err := logger.New(logCfg, logProvider.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stock ledger",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = logProvider.Shutdown(shutdownCtx)
	}()

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database), log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverSQLite {
		// sqlite has no SQL migrations; its schema comes from the models
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	ledgerMetrics, err := meterProvider.LedgerMetrics()
	if err != nil {
		log.Fatal("Failed to create ledger metrics", zap.Error(err))
	}

	stockCache, err := cache.NewStockCacheFactory(cfg.Redis, cfg.Ledger.StockCacheTTL, cache.WithLogger(log)).CreateCache()
	if err != nil {
		log.Fatal("Failed to create stock cache", zap.Error(err))
	}
	if stockCache != nil {
		defer stockCache.Close()
	}

	projectRepo := persistence.NewGormProjectRepository(db.DB)
	entryRepo := persistence.NewGormWarehouseEntryRepository(db.DB)
	packingRepo := persistence.NewGormPackingListRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	ledgerService := inventoryapp.NewLedgerService(projectRepo, entryRepo, packingRepo, txScope, log)
	ledgerService.SetMetrics(ledgerMetrics)
	ledgerService.SetTransactionTimeout(cfg.Ledger.TransactionTimeout)
	entryService := inventoryapp.NewWarehouseEntryService(projectRepo, entryRepo, txScope, log)
	packingService := inventoryapp.NewPackingListService(packingRepo, txScope, log)
	packingService.SetMetrics(ledgerMetrics)
	if stockCache != nil {
		ledgerService.SetCache(stockCache)
		entryService.SetCache(stockCache)
		packingService.SetCache(stockCache)
	}

	if cfg.Storage.Enabled {
		objects, err := storage.NewS3ObjectStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create object storage client", zap.Error(err))
		}
		if cfg.Storage.AutoCreate {
			if err := objects.EnsureBucket(ctx); err != nil {
				log.Fatal("Failed to ensure storage bucket", zap.Error(err), zap.String("bucket", objects.Bucket()))
			}
		}
		entryService.SetObjectRemover(objects)
		entryService.SetURLSigner(objects, cfg.Storage.PresignExpires)
		log.Info("Batch image storage enabled", zap.String("bucket", objects.Bucket()))
	}

	var (
		reconcileScheduler *scheduler.Scheduler
		sweepTrigger       *scheduler.SweepTrigger
	)
	if cfg.Ledger.ReconcileInterval > 0 {
		schedCfg := scheduler.ConfigFrom(cfg.Ledger)
		reconcileScheduler = scheduler.NewScheduler(schedCfg, scheduler.NewReconcileExecutor(ledgerService, log), log)
		if err := reconcileScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation scheduler", zap.Error(err))
		}
		sweepTrigger = scheduler.NewSweepTrigger(cfg.Ledger.ReconcileInterval, schedCfg.Retries, reconcileScheduler, projectRepo, log)
		if err := sweepTrigger.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciliation sweep", zap.Error(err))
		}
	}

	var httpMeter metric.Meter
	if meterProvider.IsEnabled() {
		httpMeter = meterProvider.Meter("http.server")
	}

	routes := router.LedgerRoutes(router.Handlers{
		Ledger:  handler.NewLedgerHandler(ledgerService),
		Entries: handler.NewWarehouseEntryHandler(entryService),
		Packing: handler.NewPackingListHandler(packingService),
		Health:  handler.NewHealthHandler(db.DB),
	})
	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		TracingEnabled: tracerProvider.IsEnabled(),
		ServiceName:    cfg.Telemetry.ServiceName,
		Release:        cfg.App.Env == "production",
		Meter:          httpMeter,
	}, log, routes...)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweepTrigger != nil {
		_ = sweepTrigger.Stop(shutdownCtx)
		if err := reconcileScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Reconciliation jobs still running at shutdown", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}
