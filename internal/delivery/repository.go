package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caravel-dms/caravel/internal/catalog/drivers"
	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/platform/db"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository performs delivery transitions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OrderState is the slice of an order the state machine reads under lock.
type OrderState struct {
	ID       int64
	Number   string
	Status   orders.DeliveryStatus
	DriverID *int64
}

// DriverState is the slice of a driver the state machine reads under lock.
type DriverState struct {
	ID     int64
	Name   string
	Status drivers.Status
}

// TxRepository exposes transactional operations used by the state machine.
// The order and driver rows ride in one transaction so a driver is never
// marked DELIVERING for an order that failed to transition.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, orderID int64) (OrderState, error)
	GetDriverForUpdate(ctx context.Context, driverID int64) (DriverState, error)
	SetOrderAssigned(ctx context.Context, orderID, driverID int64) error
	SetOrderDelivered(ctx context.Context, orderID int64, deliveredAt time.Time, notes string) error
	SetOrderCancelled(ctx context.Context, orderID int64) error
	SetDriverStatus(ctx context.Context, driverID int64, status drivers.Status) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (r *txRepo) GetOrderForUpdate(ctx context.Context, orderID int64) (OrderState, error) {
	var s OrderState
	err := r.tx.QueryRow(ctx, `
		SELECT id, number, delivery_status, driver_id FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&s.ID, &s.Number, &s.Status, &s.DriverID)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderState{}, shared.ErrNotFound
	}
	return s, err
}

func (r *txRepo) GetDriverForUpdate(ctx context.Context, driverID int64) (DriverState, error) {
	var d DriverState
	err := r.tx.QueryRow(ctx, `
		SELECT id, name, status FROM drivers WHERE id = $1 FOR UPDATE
	`, driverID).Scan(&d.ID, &d.Name, &d.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return DriverState{}, shared.ErrNotFound
	}
	return d, err
}

func (r *txRepo) SetOrderAssigned(ctx context.Context, orderID, driverID int64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE orders SET delivery_status = $1, driver_id = $2, updated_at = NOW() WHERE id = $3
	`, orders.DeliveryInProgress, driverID, orderID)
	return err
}

func (r *txRepo) SetOrderDelivered(ctx context.Context, orderID int64, deliveredAt time.Time, notes string) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE orders SET delivery_status = $1, delivered_at = $2, delivery_notes = $3, updated_at = NOW()
		WHERE id = $4
	`, orders.DeliveryDelivered, deliveredAt, notes, orderID)
	return err
}

func (r *txRepo) SetOrderCancelled(ctx context.Context, orderID int64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE orders SET delivery_status = $1, updated_at = NOW() WHERE id = $2
	`, orders.DeliveryCancelled, orderID)
	return err
}

func (r *txRepo) SetDriverStatus(ctx context.Context, driverID int64, status drivers.Status) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE drivers SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, driverID)
	return err
}
