package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/db"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("procurement: not found")

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type Repository interface {
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	GetWithLines(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, req ListPORequest) ([]PurchaseOrder, int, error)
	SyncPaid(ctx context.Context, purchaseOrderID int64, paid float64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository bundles every write the approval orchestrator performs in one
// transaction, including the payable row it opens.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	GetLines(ctx context.Context, purchaseOrderID int64) ([]Line, error)
	InsertPurchaseOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertLine(ctx context.Context, line Line) error
	UpdateStatus(ctx context.Context, id int64, status Status, approvedBy *int64, approvedAt *time.Time) error
	NextSequence(ctx context.Context, docType, period string) (int64, error)
	InsertAPTransaction(ctx context.Context, number string, po PurchaseOrder, dueAt time.Time) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const poColumns = `id, number, supplier_id, description, currency, total_amount, paid_amount, status, ordered_at, approved_at, approved_by, created_by, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(&po.ID, &po.Number, &po.SupplierID, &po.Description, &po.Currency, &po.TotalAmount, &po.PaidAmount,
		&po.Status, &po.OrderedAt, &po.ApprovedAt, &po.ApprovedBy, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	return po, err
}

func (r *repository) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM blink_purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (r *repository) GetWithLines(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := r.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Lines, err = listLines(ctx, r.pool, id)
	return po, err
}

func listLines(ctx context.Context, q dbtx, purchaseOrderID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT id, purchase_order_id, description, quantity, unit_price, amount, line_order
FROM blink_purchase_order_lines WHERE purchase_order_id=$1 ORDER BY line_order`, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.PurchaseOrderID, &l.Description, &l.Quantity, &l.UnitPrice, &l.Amount, &l.LineOrder); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListPORequest) ([]PurchaseOrder, int, error) {
	where := "WHERE 1=1"
	var args []any
	if req.SupplierID != nil {
		args = append(args, *req.SupplierID)
		where += fmt.Sprintf(" AND supplier_id=$%d", len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM blink_purchase_orders "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, req.Limit, req.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf("SELECT "+poColumns+" FROM blink_purchase_orders %s ORDER BY ordered_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, po)
	}
	return out, total, rows.Err()
}

// SyncPaid refreshes the cached paid amount after an AP payment commits. The
// payable row stays the source of truth.
func (r *repository) SyncPaid(ctx context.Context, purchaseOrderID int64, paid float64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE blink_purchase_orders SET paid_amount=$2, updated_at=NOW() WHERE id=$1`, purchaseOrderID, paid)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{db: tx})
	})
}

type txRepository struct {
	db dbtx
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.db.QueryRow(ctx, `SELECT `+poColumns+` FROM blink_purchase_orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	return po, nil
}

func (r *txRepository) GetLines(ctx context.Context, purchaseOrderID int64) ([]Line, error) {
	return listLines(ctx, r.db, purchaseOrderID)
}

func (r *txRepository) InsertPurchaseOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO blink_purchase_orders
(number, supplier_id, description, currency, total_amount, paid_amount, status, ordered_at, created_by)
VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8) RETURNING id`,
		po.Number, po.SupplierID, po.Description, po.Currency, po.TotalAmount, po.Status, po.OrderedAt, po.CreatedBy).
		Scan(&id)
	return id, err
}

func (r *txRepository) InsertLine(ctx context.Context, line Line) error {
	_, err := r.db.Exec(ctx, `INSERT INTO blink_purchase_order_lines
(purchase_order_id, description, quantity, unit_price, amount, line_order)
VALUES ($1,$2,$3,$4,$5,$6)`,
		line.PurchaseOrderID, line.Description, line.Quantity, line.UnitPrice, line.Amount, line.LineOrder)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, approvedBy *int64, approvedAt *time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE blink_purchase_orders SET status=$2,
approved_by=COALESCE($3, approved_by), approved_at=COALESCE($4, approved_at), updated_at=NOW()
WHERE id=$1`, id, status, approvedBy, approvedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) NextSequence(ctx context.Context, docType, period string) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO doc_sequences (doc_type, period, seq)
VALUES ($1, $2, 1)
ON CONFLICT (doc_type, period)
DO UPDATE SET seq = doc_sequences.seq + 1
RETURNING seq`, docType, period).Scan(&seq)
	return seq, err
}

// InsertAPTransaction opens the payable in the same transaction as the
// approval. Duplicated from the ap repository but needed here for
// transaction context.
func (r *txRepository) InsertAPTransaction(ctx context.Context, number string, po PurchaseOrder, dueAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO blink_ap_transactions
(number, purchase_order_id, supplier_id, original_amount, paid_amount, due_at, status)
VALUES ($1,$2,$3,$4,0,$5,'UNPAID') RETURNING id`,
		number, po.ID, po.SupplierID, po.TotalAmount, dueAt).
		Scan(&id)
	return id, err
}
