package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
)

type Repository interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	SetActive(ctx context.Context, code string, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, account Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO finance_coa (code, name, type, parent_code, is_active)
VALUES ($1, $2, $3, $4, TRUE) RETURNING id, created_at, updated_at`,
		account.Code, account.Name, account.Type, account.ParentCode)
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	account.IsActive = true
	return account, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT id, code, name, type, parent_code, is_active, created_at, updated_at
FROM finance_coa WHERE code=$1`, code).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentCode, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, type, parent_code, is_active, created_at, updated_at
FROM finance_coa ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentCode, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) SetActive(ctx context.Context, code string, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE finance_coa SET is_active=$2, updated_at=NOW() WHERE code=$1`, code, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}
