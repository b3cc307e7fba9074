package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caravel-dms/caravel/internal/platform/db"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists stock movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProductStock is the slice of a product the recorder needs: the counter and
// a name for error messages.
type ProductStock struct {
	ID    int64
	Name  string
	Stock float64
}

// TxRepository exposes transactional operations used by the recorder.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
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

func (r *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	var p ProductStock
	err := r.tx.QueryRow(ctx, `
		SELECT id, name, current_stock FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&p.ID, &p.Name, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductStock{}, shared.ErrNotFound
	}
	return p, err
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
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

const movementColumns = `m.id, m.product_id, p.name, m.movement_type, m.quantity, m.stock_before, m.stock_after,
	m.reason, m.lot_id, m.ref_kind, m.ref_id, m.note, m.actor_id, m.created_at`

func scanMovement(row pgx.Row) (Movement, error) {
	var m Movement
	err := row.Scan(&m.ID, &m.ProductID, &m.ProductName, &m.Type, &m.Quantity, &m.StockBefore, &m.StockAfter,
		&m.Reason, &m.LotID, &m.RefKind, &m.RefID, &m.Note, &m.ActorID, &m.CreatedAt)
	return m, err
}

// List returns journal entries newest first.
func (r *Repository) List(ctx context.Context, filter MovementFilter) ([]Movement, int64, error) {
	where := ` FROM stock_movements m JOIN products p ON p.id = m.product_id WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if filter.ProductID != 0 {
		where += fmt.Sprintf(" AND m.product_id = $%d", idx)
		args = append(args, filter.ProductID)
		idx++
	}
	if filter.Type != "" {
		where += fmt.Sprintf(" AND m.movement_type = $%d", idx)
		args = append(args, filter.Type)
		idx++
	}
	if !filter.From.IsZero() {
		where += fmt.Sprintf(" AND m.created_at >= $%d", idx)
		args = append(args, filter.From)
		idx++
	}
	if !filter.To.IsZero() {
		where += fmt.Sprintf(" AND m.created_at < $%d", idx)
		args = append(args, filter.To)
		idx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + movementColumns + where +
		fmt.Sprintf(" ORDER BY m.created_at DESC, m.id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

// ListForExport streams the journal over a date range without pagination.
func (r *Repository) ListForExport(ctx context.Context, from, to time.Time) ([]Movement, error) {
	ms, _, err := r.List(ctx, MovementFilter{From: from, To: to, Limit: 100000})
	return ms, err
}
