package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/app"
	"github.com/voxora/maestro/internal/client/duomi"
	"github.com/voxora/maestro/internal/config"
	"github.com/voxora/maestro/internal/domain"
	"github.com/voxora/maestro/internal/manifest"
	"github.com/voxora/maestro/internal/poller"
	"github.com/voxora/maestro/internal/report"
	"github.com/voxora/maestro/internal/repository"
	"github.com/voxora/maestro/internal/repository/postgres"
	redisrepo "github.com/voxora/maestro/internal/repository/redis"
	"github.com/voxora/maestro/internal/runner"
	"github.com/voxora/maestro/internal/scheduler"
	"github.com/voxora/maestro/internal/sink"
)

func main() {
	logger, _ := zap.NewProduction()
	code := run(logger)
	_ = logger.Sync()
	os.Exit(code)
}

// run carries the whole batch lifecycle so its defers (sink flushes, pool
// closes) fire before the process exits.
func run(logger *zap.Logger) int {
	manifestPath := flag.String("manifest", "manifest.json", "path to the generation manifest (JSON array)")
	flag.Parse()

	logger.Info("Starting Maestro batch orchestrator")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return 1
	}

	// SIGINT/SIGTERM cancels the batch: unsettled jobs settle as cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	requests, err := manifest.Load(*manifestPath, cfg.Vendor.Model)
	if err != nil {
		logger.Error("Failed to load manifest", zap.Error(err))
		return 1
	}
	logger.Info("Manifest loaded",
		zap.String("path", *manifestPath),
		zap.Int("requests", len(requests)),
	)

	// Optional Redis dedupe: skip requests already generated in earlier runs.
	var dedupe repository.DedupeStore
	if cfg.Store.RedisURL != "" {
		redisOpts, err := goredis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			logger.Error("Invalid Redis URL", zap.Error(err))
			return 1
		}
		redisClient := goredis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("Failed to connect to Redis", zap.Error(err))
			return 1
		}
		defer redisClient.Close()
		dedupe = redisrepo.NewRedisDedupeStore(redisClient)
		logger.Info("Connected to Redis")
	}

	// Optional PostgreSQL store for settled batches
	var store repository.BatchStore
	if cfg.Store.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL", zap.Error(err))
			return 1
		}
		defer dbPool.Close()
		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("Failed to ping PostgreSQL", zap.Error(err))
			return 1
		}
		store = postgres.NewPostgresBatchStore(dbPool)
		logger.Info("Connected to PostgreSQL")
	}

	stores := app.NewStores(dedupe, store, logger)

	requests, fingerprints, err := stores.FilterClaimed(ctx, requests)
	if err != nil {
		logger.Error("Dedupe claim failed", zap.Error(err))
		return 1
	}
	if len(requests) == 0 {
		logger.Info("Nothing to do")
		return 0
	}

	// Event sinks
	sinks := domain.MultiSink{}
	jsonlSink, err := sink.NewJSONL(cfg.Log.EventLogPath, logger)
	if err != nil {
		logger.Error("Failed to open event log", zap.Error(err))
		return 1
	}
	defer jsonlSink.Close()
	sinks = append(sinks, jsonlSink)

	if cfg.Log.AMQPURL != "" {
		amqpSink, err := sink.NewAMQP(cfg.Log.AMQPURL, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP event sink", zap.Error(err))
			return 1
		}
		defer amqpSink.Close()
		sinks = append(sinks, amqpSink)
		logger.Info("Connected to RabbitMQ")
	}

	// Wire the orchestrator
	client := duomi.NewClient(cfg.Vendor.BaseURL, cfg.Vendor.APIKey, cfg.Vendor.Timeout, logger)

	p, err := poller.New(client, cfg.Batch.PollInterval, cfg.Batch.MaxPollAttempts, logger)
	if err != nil {
		logger.Error("Invalid poller configuration", zap.Error(err))
		return 1
	}
	jobRunner := runner.New(client, p, sinks, logger)

	sched, err := scheduler.New(jobRunner, scheduler.Config{
		MaxConcurrent:    cfg.Batch.MaxConcurrent,
		InterSubmitDelay: cfg.Batch.InterSubmitDelay,
		MaxSubmitRetries: cfg.Batch.MaxSubmitRetries,
		RetryBase:        cfg.Batch.RetryBase,
		Window:           scheduler.WindowMode(cfg.Batch.Window),
	}, sinks, logger)
	if err != nil {
		logger.Error("Invalid scheduler configuration", zap.Error(err))
		return 1
	}

	// Start Prometheus metrics server
	go func() {
		metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics server listening", zap.String("addr", metricsAddr))
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	// Run the batch
	res := sched.RunBatch(ctx, requests)

	rep := report.Summarize(res)
	rep.Log(logger)

	// Unsuccessful requests get their dedupe claims back for the next run;
	// the settled batch is persisted. The batch context may already be
	// cancelled by now, so finalize on a fresh one.
	if err := stores.Finalize(context.Background(), res, fingerprints); err != nil {
		logger.Error("Failed to finalize batch", zap.Error(err))
	}

	if res.Failed+res.TimedOut > 0 {
		return 1
	}
	return 0
}
