package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/bigblink-erp/bigblink-erp/internal/ap"
	"github.com/bigblink-erp/bigblink-erp/internal/app"
	"github.com/bigblink-erp/bigblink-erp/internal/ar"
	jobmetrics "github.com/bigblink-erp/bigblink-erp/internal/jobs"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/cache"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/db"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/quotations"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
	"github.com/bigblink-erp/bigblink-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	quotationRepo := quotations.NewRepository(pool)
	arAging := ar.NewAgingService(ar.NewRepository(pool), redisClient, logger)
	apAging := ap.NewAgingService(ap.NewRepository(pool), redisClient, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	expireJob := jobs.NewQuotesExpireJob(quotationRepo, logger, metrics)
	integrityJob := jobs.NewGLIntegrityJob(pool, logger, metrics)
	snapshotJob := jobs.NewAgingSnapshotJob(arAging, apAging, logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(idempotencyStore, logger, metrics)

	integrityTask, err := jobs.NewGLIntegrityTask(90)
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuotesExpire, Handler: expireJob.Handle},
			{Type: jobs.TaskGLIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskAgingSnapshot, Handler: snapshotJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: jobs.NewQuotesExpireTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 5 * * *", Task: jobs.NewAgingSnapshotTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 3 * * 0", Task: jobs.NewIdempotencyCleanupTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
