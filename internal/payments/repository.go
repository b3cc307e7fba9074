package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/orders"
	"github.com/caravel-dms/caravel/internal/platform/db"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists payments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OrderBalance is the slice of an order the ledger mutates, read under a row
// lock.
type OrderBalance struct {
	ID        int64
	Number    string
	Total     decimal.Decimal
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// TxRepository exposes the operations payment recording performs inside one
// transaction.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, orderID int64) (OrderBalance, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdateOrderBalance(ctx context.Context, orderID int64, paid, remaining decimal.Decimal, status orders.PaymentStatus) error
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

func (r *txRepo) GetOrderForUpdate(ctx context.Context, orderID int64) (OrderBalance, error) {
	var b OrderBalance
	var total, paid, remaining string
	err := r.tx.QueryRow(ctx, `
		SELECT id, number, total::text, paid::text, remaining::text
		FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&b.ID, &b.Number, &total, &paid, &remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return OrderBalance{}, shared.ErrNotFound
	}
	if err != nil {
		return OrderBalance{}, err
	}
	if b.Total, err = decimal.NewFromString(total); err != nil {
		return OrderBalance{}, err
	}
	if b.Paid, err = decimal.NewFromString(paid); err != nil {
		return OrderBalance{}, err
	}
	if b.Remaining, err = decimal.NewFromString(remaining); err != nil {
		return OrderBalance{}, err
	}
	return b, nil
}

func (r *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO payments (order_id, amount, mode, reference, notes, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, p.OrderID, p.Amount.String(), p.Mode, p.Reference, p.Notes, p.ActorID, p.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateOrderBalance(ctx context.Context, orderID int64, paid, remaining decimal.Decimal, status orders.PaymentStatus) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE orders SET paid = $1, remaining = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $4
	`, paid.String(), remaining.String(), status, orderID)
	return err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	var amount string
	err := row.Scan(&p.ID, &p.OrderID, &amount, &p.Mode, &p.Reference, &p.Notes, &p.ActorID, &p.CreatedAt)
	if err != nil {
		return Payment{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return Payment{}, err
	}
	return p, nil
}

// ListByOrder returns an order's payments oldest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, amount::text, mode, reference, notes, actor_id, created_at
		FROM payments WHERE order_id = $1 ORDER BY created_at, id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
