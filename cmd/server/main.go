package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"farebridge/internal/app"
	"farebridge/internal/config"
	"farebridge/internal/handler"
	internalRedis "farebridge/internal/redis"
	"farebridge/internal/repository/postgres"
	"farebridge/internal/service"
	"farebridge/internal/sink"
)

func main() {
	logger, err := app.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first so the database and Redis clients get instrumented.
	nrApp, err := app.NewNewRelicApp(cfg.NewRelic)
	if err != nil {
		logger.Warn("failed to initialize New Relic", zap.Error(err))
		nrApp = nil
	} else if nrApp != nil {
		logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
	}

	var db *sql.DB
	if cfg.Database.Enabled {
		db, err = app.NewDatabase(ctx, cfg.Database, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("connected to PostgreSQL")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("connected to Redis")
	}

	metrics, err := app.NewMetrics(nil)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	server, settlement, pipeline, err := wireServer(ctx, db, redisClient, nrApp, metrics, logger, cfg)
	if err != nil {
		logger.Fatal("failed to wire server", zap.Error(err))
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := settlement.OnShutdown(shutdownCtx); err != nil {
		logger.Error("failed to flush record sinks", zap.Error(err))
	}
	if err := pipeline.Close(); err != nil {
		logger.Error("failed to close record sinks", zap.Error(err))
	}
	for name, n := range pipeline.Dropped() {
		if n > 0 {
			logger.Warn("records dropped by full buffer", zap.String("sink", name), zap.Int64("dropped", n))
		}
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited", zap.Any("anomalies", settlement.Anomalies()))
}

// wireServer wires all dependencies and returns the HTTP server together with
// the settlement core and its record pipeline.
func wireServer(
	ctx context.Context,
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	metrics *app.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) (*http.Server, *service.Settlement, *app.Pipeline, error) {
	deps := app.PipelineDeps{Logger: logger}

	var records handler.RecordLister
	if db != nil {
		repo := postgres.NewMoneyRecordRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, nil, nil, err
		}
		deps.Postgres = sink.BatchWriterFunc(repo.CreateBatch)
		records = repo
	}
	if redisClient != nil {
		deps.Stream = internalRedis.NewRecordStream(redisClient, cfg.Redis.Stream, cfg.Redis.StreamMaxLen)
	}

	pipeline, err := app.NewPipeline(cfg.Sinks, deps)
	if err != nil {
		return nil, nil, nil, err
	}
	if records == nil {
		records = pipeline.Memory
	}

	fleet := app.Fleet(cfg.Fleet)
	transit, shared := fleet.Size()
	logger.Info("fleet loaded", zap.Int("transit_vehicles", transit), zap.Int("shared_vehicles", shared))

	settlement := service.NewSettlement(service.SettlementDeps{
		Fleet:    fleet,
		Policy:   app.FarePolicy(cfg.Fare),
		Audit:    pipeline.Audit,
		Emitter:  pipeline.Head,
		Sinks:    pipeline,
		Observer: service.Observers{metrics, app.NewNewRelicObserver(nrApp)},
		Logger:   logger,
	})

	settlementHandler := handler.NewSettlementHandler(settlement, pipeline.Memory, cfg.Ingest.Concurrency)
	riderHandler := handler.NewRiderHandler(settlement, records)

	router := app.NewRouter(app.RouterDeps{
		SettlementHandler: settlementHandler,
		RiderHandler:      riderHandler,
		Metrics:           metrics.Handler(),
		RedisClient:       redisClient,
		NewRelicApp:       nrApp,
		Logger:            logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, settlement, pipeline, nil
}
