package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/caravel-dms/caravel/internal/app"
	"github.com/caravel-dms/caravel/internal/catalog/categories"
	"github.com/caravel-dms/caravel/internal/catalog/clients"
	"github.com/caravel-dms/caravel/internal/catalog/drivers"
	"github.com/caravel-dms/caravel/internal/catalog/products"
	"github.com/caravel-dms/caravel/internal/catalog/suppliers"
	"github.com/caravel-dms/caravel/internal/delivery"
	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/lots"
	"github.com/caravel-dms/caravel/internal/observability"
	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/payments"
	"github.com/caravel-dms/caravel/internal/platform/db"
	"github.com/caravel-dms/caravel/internal/procurement"
	"github.com/caravel-dms/caravel/internal/reports"
	"github.com/caravel-dms/caravel/internal/shared"
)

func runMigrations(dsn, dir string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, dir)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.RunMigrations {
		if err := runMigrations(cfg.PGDSN, cfg.MigrationsDir); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idemStore := shared.NewIdempotencyStore(pool)

	productsSvc := products.NewService(products.NewRepository(pool))
	categoriesSvc := categories.NewService(categories.NewRepository(pool))
	suppliersSvc := suppliers.NewService(suppliers.NewRepository(pool))
	clientsSvc := clients.NewService(clients.NewRepository(pool))
	driversSvc := drivers.NewService(drivers.NewRepository(pool))

	inventorySvc := inventory.NewService(inventory.NewRepository(pool), auditLogger, metrics)
	lotsSvc := lots.NewService(lots.NewRepository(pool), cfg.LotNearExpiryWindow)
	procurementSvc := procurement.NewService(procurement.NewRepository(pool), auditLogger, metrics, cfg.LotNearExpiryWindow)

	ordersSvc := orders.NewService(orders.NewRepository(pool), auditLogger, metrics)
	paymentsSvc := payments.NewService(payments.NewRepository(pool), ordersSvc, auditLogger, metrics)
	deliverySvc := delivery.NewService(delivery.NewRepository(pool), ordersSvc, auditLogger)

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsSvc := reports.NewService(
		reports.NewRepository(pool),
		lots.NewRepository(pool),
		inventory.NewRepository(pool),
		orders.NewRepository(pool),
		reportsCache,
		cfg.LotNearExpiryWindow,
	)

	router := app.NewRouter(logger, cfg, metrics, app.Handlers{
		Products:    products.NewHandler(logger, productsSvc),
		Categories:  categories.NewHandler(logger, categoriesSvc),
		Suppliers:   suppliers.NewHandler(logger, suppliersSvc),
		Clients:     clients.NewHandler(logger, clientsSvc),
		Drivers:     drivers.NewHandler(logger, driversSvc),
		Inventory:   inventory.NewHandler(logger, inventorySvc),
		Lots:        lots.NewHandler(logger, lotsSvc),
		Procurement: procurement.NewHandler(logger, procurementSvc),
		Orders:      orders.NewHandler(logger, ordersSvc, idemStore),
		Payments:    payments.NewHandler(logger, paymentsSvc, idemStore),
		Delivery:    delivery.NewHandler(logger, deliverySvc),
		Reports:     reports.NewHandler(logger, reportsSvc),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
