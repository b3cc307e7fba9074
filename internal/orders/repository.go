package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/platform/db"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProductRow is the slice of a product order creation needs while holding
// the row lock.
type ProductRow struct {
	ID    int64
	Name  string
	Stock float64
}

// TxRepository exposes the operations order creation performs inside one
// transaction. Movements and stock updates ride in the same transaction as
// the order header so a failing line rolls back everything.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductRow, error)
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	InsertMovement(ctx context.Context, m inventory.Movement) (int64, error)
	UpdateProductStock(ctx context.Context, productID int64, stock float64) error
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

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (ProductRow, error) {
	var p ProductRow
	err := r.tx.QueryRow(ctx, `
		SELECT id, name, current_stock FROM products WHERE id = $1 AND active FOR UPDATE
	`, productID).Scan(&p.ID, &p.Name, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRow{}, shared.ErrNotFound
	}
	return p, err
}

func (r *txRepo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO orders
			(number, client_id, delivery_status, payment_status, total, paid, remaining, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, o.Number, o.ClientID, o.DeliveryStatus, o.PaymentStatus,
		o.Total.String(), o.Paid.String(), o.Remaining.String(), o.Notes).Scan(&id)
	return id, err
}

func (r *txRepo) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice.String(), item.Amount.String()).Scan(&id)
	return id, err
}

func (r *txRepo) InsertMovement(ctx context.Context, m inventory.Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO stock_movements
			(product_id, movement_type, quantity, stock_before, stock_after, reason, lot_id, ref_kind, ref_id, note, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, m.ProductID, m.Type, m.Quantity, m.StockBefore, m.StockAfter,
		m.Reason, m.LotID, m.RefKind, m.RefID, m.Note, m.ActorID, m.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepo) UpdateProductStock(ctx context.Context, productID int64, stock float64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE products SET current_stock = $1, updated_at = NOW() WHERE id = $2
	`, stock, productID)
	return err
}

const orderColumns = `o.id, o.number, o.client_id, c.name, o.delivery_status, o.payment_status,
	o.total::text, o.paid::text, o.remaining::text, o.driver_id, d.name, o.notes, o.delivery_notes,
	o.delivered_at, o.created_at, o.updated_at`

const orderJoins = ` FROM orders o
	JOIN clients c ON c.id = o.client_id
	LEFT JOIN drivers d ON d.id = o.driver_id`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var total, paid, remaining string
	err := row.Scan(&o.ID, &o.Number, &o.ClientID, &o.ClientName, &o.DeliveryStatus, &o.PaymentStatus,
		&total, &paid, &remaining, &o.DriverID, &o.DriverName, &o.Notes, &o.DeliveryNotes,
		&o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, err
	}
	if o.Paid, err = decimal.NewFromString(paid); err != nil {
		return Order{}, err
	}
	if o.Remaining, err = decimal.NewFromString(remaining); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+orderJoins+` WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *Repository) listItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, p.name, i.quantity, i.unit_price::text, i.amount::text
		FROM order_items i JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var it Item
		var price, amount string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &price, &amount); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if it.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List returns orders newest first, without items.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if filter.ClientID != 0 {
		where += fmt.Sprintf(" AND o.client_id = $%d", idx)
		args = append(args, filter.ClientID)
		idx++
	}
	if filter.DeliveryStatus != "" {
		where += fmt.Sprintf(" AND o.delivery_status = $%d", idx)
		args = append(args, filter.DeliveryStatus)
		idx++
	}
	if filter.PaymentStatus != "" {
		where += fmt.Sprintf(" AND o.payment_status = $%d", idx)
		args = append(args, filter.PaymentStatus)
		idx++
	}
	if !filter.From.IsZero() {
		where += fmt.Sprintf(" AND o.created_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		where += fmt.Sprintf(" AND o.created_at < $%d", idx)
		args = append(args, filter.To)
		idx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+orderJoins+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + orderColumns + orderJoins + where +
		fmt.Sprintf(" ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// ListForExport returns full orders over a date range for the XLSX order book.
func (r *Repository) ListForExport(ctx context.Context, from, to time.Time) ([]Order, error) {
	os, _, err := r.List(ctx, ListFilter{From: from, To: to, Limit: 100000})
	return os, err
}
