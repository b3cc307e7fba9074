package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/inventory"
	"github.com/caravel-dms/caravel/internal/lots"
	"github.com/caravel-dms/caravel/internal/platform/db"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists receipts in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProductRow is the slice of a product receiving needs under lock.
type ProductRow struct {
	ID    int64
	Name  string
	Stock float64
}

// TxRepository exposes the operations receiving performs inside one
// transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductRow, error)
	InsertReceipt(ctx context.Context, rec Receipt) (int64, error)
	InsertReceiptItem(ctx context.Context, item ReceiptItem) (int64, error)
	InsertLot(ctx context.Context, l lots.Lot) (int64, error)
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
		SELECT id, name, current_stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&p.ID, &p.Name, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRow{}, shared.ErrNotFound
	}
	return p, err
}

func (r *txRepo) InsertReceipt(ctx context.Context, rec Receipt) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO receipts (number, supplier_id, total, payment_status, notes, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, rec.Number, rec.SupplierID, rec.Total.String(), rec.PaymentStatus, rec.Notes, rec.ActorID).Scan(&id)
	return id, err
}

func (r *txRepo) InsertReceiptItem(ctx context.Context, item ReceiptItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO receipt_items (receipt_id, product_id, quantity, unit_cost, amount, lot_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, item.ReceiptID, item.ProductID, item.Quantity, item.UnitCost.String(), item.Amount.String(), item.LotID).Scan(&id)
	return id, err
}

func (r *txRepo) InsertLot(ctx context.Context, l lots.Lot) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO lots (product_id, lot_number, initial_quantity, remaining_quantity, manufacture_date, expiration_date, status, receipt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, l.ProductID, l.LotNumber, l.InitialQty, l.RemainingQty, l.ManufactureDate, l.ExpirationDate, l.Status, l.ReceiptID).Scan(&id)
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

const receiptColumns = `r.id, r.number, r.supplier_id, s.name, r.total::text, r.payment_status, r.paid_at, r.notes, r.actor_id, r.created_at`

func scanReceipt(row pgx.Row) (Receipt, error) {
	var rec Receipt
	var total string
	err := row.Scan(&rec.ID, &rec.Number, &rec.SupplierID, &rec.SupplierName, &total, &rec.PaymentStatus, &rec.PaidAt, &rec.Notes, &rec.ActorID, &rec.CreatedAt)
	if err != nil {
		return Receipt{}, err
	}
	if rec.Total, err = decimal.NewFromString(total); err != nil {
		return Receipt{}, err
	}
	return rec, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Receipt, error) {
	rec, err := scanReceipt(r.pool.QueryRow(ctx, `
		SELECT `+receiptColumns+` FROM receipts r JOIN suppliers s ON s.id = r.supplier_id WHERE r.id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, shared.ErrNotFound
	}
	if err != nil {
		return Receipt{}, err
	}
	items, err := r.listItems(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	rec.Items = items
	return rec, nil
}

func (r *Repository) listItems(ctx context.Context, receiptID int64) ([]ReceiptItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.receipt_id, i.product_id, p.name, i.quantity, i.unit_cost::text, i.amount::text,
			i.lot_id, COALESCE(l.lot_number, ''), l.expiration_date
		FROM receipt_items i
		JOIN products p ON p.id = i.product_id
		LEFT JOIN lots l ON l.id = i.lot_id
		WHERE i.receipt_id = $1
		ORDER BY i.id
	`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReceiptItem
	for rows.Next() {
		var it ReceiptItem
		var cost, amount string
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.ProductID, &it.ProductName, &it.Quantity, &cost, &amount,
			&it.LotID, &it.LotNumber, &it.ExpirationDate); err != nil {
			return nil, err
		}
		if it.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		if it.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkPaid settles an unpaid receipt. A zero row count means another writer
// settled it first.
func (r *Repository) MarkPaid(ctx context.Context, id int64, paidAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE receipts SET payment_status = 'PAID', paid_at = $1 WHERE id = $2 AND payment_status = 'UNPAID'
	`, paidAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// List returns receipts newest first, without items.
func (r *Repository) List(ctx context.Context, from, to time.Time, limit, offset int) ([]Receipt, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if !from.IsZero() {
		where += fmt.Sprintf(" AND r.created_at >= $%d", idx)
		args = append(args, from)
		idx++
	}
	if !to.IsZero() {
		where += fmt.Sprintf(" AND r.created_at < $%d", idx)
		args = append(args, to)
		idx++
	}
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM receipts r`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + receiptColumns + ` FROM receipts r JOIN suppliers s ON s.id = r.supplier_id` + where +
		fmt.Sprintf(" ORDER BY r.created_at DESC, r.id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}
