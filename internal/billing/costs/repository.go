package costs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("billing: cost not found")

type Repository interface {
	Get(ctx context.Context, id int64) (Cost, error)
	ListByQuotation(ctx context.Context, quotationID int64) ([]Cost, error)
	UpdateStatus(ctx context.Context, id int64, status CostStatus) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const costColumns = `id, number, quotation_id, description, amount, status, created_at, updated_at`

// ScanCost maps one row with costColumns order against big_costs.
func ScanCost(row pgx.Row) (Cost, error) {
	var c Cost
	err := row.Scan(&c.ID, &c.Number, &c.QuotationID, &c.Description, &c.Amount, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (Cost, error) {
	c, err := ScanCost(r.db.QueryRow(ctx, `SELECT `+costColumns+` FROM big_costs WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cost{}, ErrNotFound
		}
		return Cost{}, err
	}
	return c, nil
}

func (r *repository) ListByQuotation(ctx context.Context, quotationID int64) ([]Cost, error) {
	rows, err := r.db.Query(ctx, `SELECT `+costColumns+` FROM big_costs WHERE quotation_id=$1 ORDER BY number`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Cost
	for rows.Next() {
		c, err := ScanCost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status CostStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE big_costs SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
