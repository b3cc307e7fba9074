package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists suppliers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const supplierColumns = `id, name, contact, phone, email, address, active, created_at, updated_at`

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Email, &s.Address, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Supplier, error) {
	s, err := scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, shared.ErrNotFound
	}
	return s, err
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers ORDER BY name`
	if activeOnly {
		query = `SELECT ` + supplierColumns + ` FROM suppliers WHERE active ORDER BY name`
	}
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, s Supplier) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact, phone, email, address, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`, s.Name, s.Contact, s.Phone, s.Email, s.Address).Scan(&id)
	return id, err
}

func (r *Repository) Update(ctx context.Context, id int64, s Supplier) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE suppliers
		SET name = $1, contact = $2, phone = $3, email = $4, address = $5, active = $6, updated_at = NOW()
		WHERE id = $7
	`, s.Name, s.Contact, s.Phone, s.Email, s.Address, s.Active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) ListPrices(ctx context.Context, supplierID int64) ([]PriceEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ps.id, ps.supplier_id, ps.product_id, p.name, ps.unit_cost::text, ps.supplier_ref, ps.lead_time_days, ps.created_at
		FROM product_suppliers ps
		JOIN products p ON p.id = ps.product_id
		WHERE ps.supplier_id = $1
		ORDER BY p.name
	`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PriceEntry
	for rows.Next() {
		var e PriceEntry
		var cost string
		if err := rows.Scan(&e.ID, &e.SupplierID, &e.ProductID, &e.ProductName, &cost, &e.SupplierRef, &e.LeadTimeDays, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.UnitCost, err = decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("suppliers: parse unit cost: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertPrice inserts or replaces the supplier's price for one product. A
// foreign key violation means the product or supplier does not exist.
func (r *Repository) UpsertPrice(ctx context.Context, e PriceEntry) (PriceEntry, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO product_suppliers (supplier_id, product_id, unit_cost, supplier_ref, lead_time_days)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (supplier_id, product_id)
		DO UPDATE SET unit_cost = EXCLUDED.unit_cost, supplier_ref = EXCLUDED.supplier_ref, lead_time_days = EXCLUDED.lead_time_days
		RETURNING id, created_at
	`, e.SupplierID, e.ProductID, e.UnitCost.String(), e.SupplierRef, e.LeadTimeDays).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return PriceEntry{}, shared.ErrNotFound
		}
		return PriceEntry{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT name FROM products WHERE id = $1`, e.ProductID).Scan(&e.ProductName)
	return e, err
}
