package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OrdersSince counts orders created at or after the cutoff and sums their
// totals.
func (r *Repository) OrdersSince(ctx context.Context, cutoff time.Time) (count int64, revenue decimal.Decimal, err error) {
	var total string
	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)::text
		FROM orders WHERE created_at >= $1 AND delivery_status <> 'CANCELLED'
	`, cutoff).Scan(&count, &total)
	if err != nil {
		return 0, decimal.Zero, err
	}
	revenue, err = decimal.NewFromString(total)
	return count, revenue, err
}

// OutstandingReceivables sums the remaining amounts on live unpaid orders.
func (r *Repository) OutstandingReceivables(ctx context.Context) (decimal.Decimal, error) {
	var remaining string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(remaining), 0)::text
		FROM orders WHERE payment_status <> 'PAID' AND delivery_status <> 'CANCELLED'
	`).Scan(&remaining)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(remaining)
}

// LowStockCount counts active products at or below their minimum.
func (r *Repository) LowStockCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM products WHERE active AND current_stock <= min_stock
	`).Scan(&n)
	return n, err
}

// DeliveriesInProgress counts orders currently on the road.
func (r *Repository) DeliveriesInProgress(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders WHERE delivery_status = 'IN_PROGRESS'
	`).Scan(&n)
	return n, err
}
