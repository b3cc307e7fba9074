package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLotReclassify re-derives every lot's expiry status.
	TaskLotReclassify = "lots:reclassify"
	// TaskLowStockScan logs products at or below their minimum.
	TaskLowStockScan = "stock:low_scan"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LotReclassifier re-derives lot statuses from expiration dates.
type LotReclassifier interface {
	Reclassify(ctx context.Context) (int64, error)
}

// ReportInvalidator bumps the report cache after bulk changes.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// LowStockScanner lists products at or below their minimum stock.
type LowStockScanner interface {
	LowStockCount(ctx context.Context) (int64, error)
}

// KeyPruner removes idempotency keys older than a retention window.
type KeyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// NewLotReclassifyTask constructs the reclassification task.
func NewLotReclassifyTask() *asynq.Task {
	return asynq.NewTask(TaskLotReclassify, nil)
}

// NewLowStockScanTask constructs the low stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// NewIdempotencyCleanupTask constructs the key pruning task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// HandleLotReclassify returns the handler for TaskLotReclassify.
func HandleLotReclassify(logger *slog.Logger, lots LotReclassifier, reports ReportInvalidator) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		start := time.Now()
		changed, err := lots.Reclassify(ctx)
		if err != nil {
			return err
		}
		if changed > 0 && reports != nil {
			if err := reports.Invalidate(ctx); err != nil {
				logger.Warn("invalidate report cache", slog.Any("error", err))
			}
		}
		logger.Info("lot reclassification done",
			slog.Int64("changed", changed),
			slog.Duration("elapsed", time.Since(start)))
		return nil
	}
}

// HandleLowStockScan returns the handler for TaskLowStockScan.
func HandleLowStockScan(logger *slog.Logger, scanner LowStockScanner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		count, err := scanner.LowStockCount(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			logger.Warn("products at or below minimum stock", slog.Int64("count", count))
		}
		return nil
	}
}

// HandleIdempotencyCleanup returns the handler for TaskIdempotencyCleanup.
func HandleIdempotencyCleanup(logger *slog.Logger, pruner KeyPruner, retention time.Duration) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := pruner.Cleanup(ctx, retention); err != nil {
			return err
		}
		logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
		return nil
	}
}
