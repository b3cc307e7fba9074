package lots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists lots in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const lotColumns = `l.id, l.product_id, p.name, l.lot_number, l.initial_quantity, l.remaining_quantity,
	l.manufacture_date, l.expiration_date, l.status, l.receipt_id, l.created_at, l.updated_at`

func scanLot(row pgx.Row) (Lot, error) {
	var l Lot
	err := row.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.LotNumber, &l.InitialQty, &l.RemainingQty,
		&l.ManufactureDate, &l.ExpirationDate, &l.Status, &l.ReceiptID, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Lot, error) {
	l, err := scanLot(r.pool.QueryRow(ctx, `
		SELECT `+lotColumns+` FROM lots l JOIN products p ON p.id = l.product_id WHERE l.id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lot{}, shared.ErrNotFound
	}
	return l, err
}

// ListFilter narrows lot queries. Status filtering happens in the service
// after re-deriving, so it is not part of the SQL filter.
type ListFilter struct {
	ProductID      int64
	ExpiringBefore time.Time
	Limit          int
	Offset         int
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots l JOIN products p ON p.id = l.product_id WHERE 1=1`
	args := []interface{}{}
	idx := 1
	if filter.ProductID != 0 {
		query += fmt.Sprintf(" AND l.product_id = $%d", idx)
		args = append(args, filter.ProductID)
		idx++
	}
	if !filter.ExpiringBefore.IsZero() {
		query += fmt.Sprintf(" AND l.expiration_date IS NOT NULL AND l.expiration_date < $%d", idx)
		args = append(args, filter.ExpiringBefore)
		idx++
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	query += fmt.Sprintf(" ORDER BY l.expiration_date ASC NULLS LAST, l.id LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, l Lot) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO lots (product_id, lot_number, initial_quantity, remaining_quantity, manufacture_date, expiration_date, status, receipt_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, l.ProductID, l.LotNumber, l.InitialQty, l.RemainingQty, l.ManufactureDate, l.ExpirationDate, l.Status, l.ReceiptID).Scan(&id)
	return id, err
}

// ReclassifyAll rewrites stored statuses from expiration dates in two set
// statements. Returns the number of rows whose status changed.
func (r *Repository) ReclassifyAll(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	expired, err := r.pool.Exec(ctx, `
		UPDATE lots SET status = $1, updated_at = NOW()
		WHERE expiration_date IS NOT NULL AND expiration_date <= $2 AND status <> $1
	`, StatusExpired, now)
	if err != nil {
		return 0, err
	}
	near, err := r.pool.Exec(ctx, `
		UPDATE lots SET status = $1, updated_at = NOW()
		WHERE expiration_date IS NOT NULL AND expiration_date > $2 AND expiration_date <= $3 AND status <> $1
	`, StatusNearExpiry, now, now.Add(window))
	if err != nil {
		return 0, err
	}
	good, err := r.pool.Exec(ctx, `
		UPDATE lots SET status = $1, updated_at = NOW()
		WHERE (expiration_date IS NULL OR expiration_date > $2) AND status <> $1
	`, StatusGood, now.Add(window))
	if err != nil {
		return 0, err
	}
	return expired.RowsAffected() + near.RowsAffected() + good.RowsAffected(), nil
}

// CountByStatus feeds the dashboard KPI tiles.
func (r *Repository) CountByStatus(ctx context.Context, now time.Time, window time.Duration) (nearExpiry, expired int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE expiration_date > $1 AND expiration_date <= $2),
			COUNT(*) FILTER (WHERE expiration_date <= $1)
		FROM lots WHERE expiration_date IS NOT NULL
	`, now, now.Add(window)).Scan(&nearExpiry, &expired)
	return nearExpiry, expired, err
}
