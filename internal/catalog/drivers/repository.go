package drivers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists drivers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const driverColumns = `id, name, phone, vehicle, status, created_at, updated_at`

func scanDriver(row pgx.Row) (Driver, error) {
	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Vehicle, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Driver, error) {
	d, err := scanDriver(r.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, shared.ErrNotFound
	}
	return d, err
}

func (r *Repository) List(ctx context.Context, status Status) ([]Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers ORDER BY name`
	args := []interface{}{}
	if status != "" {
		query = `SELECT ` + driverColumns + ` FROM drivers WHERE status = $1 ORDER BY name`
		args = append(args, status)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, d Driver) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO drivers (name, phone, vehicle, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, d.Name, d.Phone, d.Vehicle, d.Status).Scan(&id)
	return id, err
}

func (r *Repository) Update(ctx context.Context, id int64, d Driver) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE drivers
		SET name = $1, phone = $2, vehicle = $3, status = $4, updated_at = NOW()
		WHERE id = $5
	`, d.Name, d.Phone, d.Vehicle, d.Status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
