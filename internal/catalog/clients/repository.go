package clients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caravel-dms/caravel/internal/shared"
)

// Repository persists clients in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = `id, name, contact, phone, email, address, kind, active, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Contact, &c.Phone, &c.Email, &c.Address, &c.Kind, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.ErrNotFound
	}
	return c, err
}

func (r *Repository) List(ctx context.Context, search string, activeOnly bool) ([]Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	args := []interface{}{}
	if search != "" {
		args = append(args, "%"+search+"%")
		query += ` AND name ILIKE $1`
	}
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, contact, phone, email, address, kind, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING id
	`, c.Name, c.Contact, c.Phone, c.Email, c.Address, c.Kind).Scan(&id)
	return id, err
}

func (r *Repository) Update(ctx context.Context, id int64, c Client) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clients
		SET name = $1, contact = $2, phone = $3, email = $4, address = $5, kind = $6, active = $7, updated_at = NOW()
		WHERE id = $8
	`, c.Name, c.Contact, c.Phone, c.Email, c.Address, c.Kind, c.Active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
