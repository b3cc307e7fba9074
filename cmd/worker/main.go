package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/caravel-dms/caravel/internal/app"
	"github.com/caravel-dms/caravel/internal/lots"
	"github.com/caravel-dms/caravel/internal/platform/db"
	"github.com/caravel-dms/caravel/internal/reports"
	"github.com/caravel-dms/caravel/internal/shared"
	"github.com/caravel-dms/caravel/jobs"
)

func main() {
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	lotsSvc := lots.NewService(lots.NewRepository(pool), cfg.LotNearExpiryWindow)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsSvc := reports.NewService(
		reports.NewRepository(pool),
		lots.NewRepository(pool),
		nil,
		nil,
		reportsCache,
		cfg.LotNearExpiryWindow,
	)
	statsRepo := reports.NewRepository(pool)
	idemStore := shared.NewIdempotencyStore(pool)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLotReclassify, Handler: jobs.HandleLotReclassify(logger, lotsSvc, reportsSvc)},
			{Type: jobs.TaskLowStockScan, Handler: jobs.HandleLowStockScan(logger, statsRepo)},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.HandleIdempotencyCleanup(logger, idemStore, 48*time.Hour)},
		},
		Cron: []jobs.CronRegistration{
			// Nightly, after the warehouse closes.
			{Spec: "0 2 * * *", Task: jobs.NewLotReclassifyTask()},
			{Spec: "0 * * * *", Task: jobs.NewLowStockScanTask()},
			{Spec: "0 3 * * *", Task: jobs.NewIdempotencyCleanupTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
