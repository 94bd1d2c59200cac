package ap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/db"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("ap: not found")

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filter ListFilter) ([]Transaction, int, error)
	ListOutstanding(ctx context.Context) ([]Transaction, error)
	ListPayments(ctx context.Context, transactionID int64) ([]Payment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxPort) error) error
}

// TxPort bundles the writes of one disbursement event.
type TxPort interface {
	GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error)
	NextSequence(ctx context.Context, docType, period string) (int64, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdateTransactionPaid(ctx context.Context, id int64, paid float64, status TransactionStatus) error
}

type ListFilter struct {
	SupplierID *int64
	Status     *TransactionStatus
	Limit      int
	Offset     int
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const txnColumns = `id, number, purchase_order_id, supplier_id, original_amount, paid_amount, due_at, status, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.Number, &t.PurchaseOrderID, &t.SupplierID, &t.OriginalAmount, &t.PaidAmount, &t.DueAt, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *Repository) Get(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM blink_ap_transactions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Transaction, int, error) {
	where := "WHERE 1=1"
	var args []any
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		where += fmt.Sprintf(" AND supplier_id=$%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM blink_ap_transactions "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf("SELECT "+txnColumns+" FROM blink_ap_transactions %s ORDER BY due_at, id LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *Repository) ListOutstanding(ctx context.Context) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+txnColumns+` FROM blink_ap_transactions
WHERE status <> 'PAID' ORDER BY due_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) ListPayments(ctx context.Context, transactionID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, transaction_id, amount, paid_at, method, reference, notes, created_by, created_at
FROM blink_ap_payments WHERE transaction_id=$1 ORDER BY paid_at, id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.Number, &p.TransactionID, &p.Amount, &p.PaidAt, &p.Method, &p.Reference, &p.Notes, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{db: tx})
	})
}

type txRepo struct {
	db dbtx
}

func (r *txRepo) GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+txnColumns+` FROM blink_ap_transactions WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *txRepo) NextSequence(ctx context.Context, docType, period string) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO doc_sequences (doc_type, period, seq)
VALUES ($1, $2, 1)
ON CONFLICT (doc_type, period)
DO UPDATE SET seq = doc_sequences.seq + 1
RETURNING seq`, docType, period).Scan(&seq)
	return seq, err
}

func (r *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO blink_ap_payments
(number, transaction_id, amount, paid_at, method, reference, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		p.Number, p.TransactionID, p.Amount, p.PaidAt, p.Method, p.Reference, p.Notes, p.CreatedBy).
		Scan(&id)
	return id, err
}

func (r *txRepo) UpdateTransactionPaid(ctx context.Context, id int64, paid float64, status TransactionStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE blink_ap_transactions SET paid_amount=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, paid, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
