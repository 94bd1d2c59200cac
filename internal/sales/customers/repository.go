package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, id int64, customer Customer) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type ListCustomersRequest struct {
	Search   *string
	IsActive *bool
	Limit    int
	Offset   int
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const customerColumns = `id, code, name, email, phone, tax_id, payment_terms_days, address, city, country, is_active, notes, created_by, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.TaxID, &c.PaymentTermsDays,
		&c.Address, &c.City, &c.Country, &c.IsActive, &c.Notes, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM big_customers WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	where := "WHERE 1=1"
	var args []any
	if req.IsActive != nil {
		args = append(args, *req.IsActive)
		where += fmt.Sprintf(" AND is_active=$%d", len(args))
	}
	if req.Search != nil && *req.Search != "" {
		args = append(args, "%"+*req.Search+"%")
		where += fmt.Sprintf(" AND (code ILIKE $%d OR name ILIKE $%d)", len(args), len(args))
	}
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM big_customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, req.Limit, req.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT "+customerColumns+" FROM big_customers %s ORDER BY name LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO big_customers
(code, name, email, phone, tax_id, payment_terms_days, address, city, country, is_active, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,TRUE,$10,$11) RETURNING id`,
		c.Code, c.Name, c.Email, c.Phone, c.TaxID, c.PaymentTermsDays, c.Address, c.City, c.Country, c.Notes, c.CreatedBy).
		Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, c Customer) error {
	cmd, err := r.db.Exec(ctx, `UPDATE big_customers SET
name=$2, email=$3, phone=$4, tax_id=$5, payment_terms_days=$6, address=$7, city=$8, country=$9, notes=$10, updated_at=NOW()
WHERE id=$1`, id, c.Name, c.Email, c.Phone, c.TaxID, c.PaymentTermsDays, c.Address, c.City, c.Country, c.Notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE big_customers SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
