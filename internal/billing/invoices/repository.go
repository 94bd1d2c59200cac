package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("billing: invoice not found")

type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByQuotation(ctx context.Context, quotationID int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	Cancel(ctx context.Context, id int64) error
}

type ListInvoicesRequest struct {
	CustomerID *int64
	Status     *InvoiceStatus
	Limit      int
	Offset     int
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const invoiceColumns = `id, number, quotation_id, customer_id, currency, subtotal, tax_rate, tax_amount, total_amount, paid_amount, status, due_at, created_at, updated_at`

// ScanInvoice maps one row with invoiceColumns order. Exported so transaction
// contexts in other modules can reuse the mapping against big_invoices.
func ScanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.QuotationID, &inv.CustomerID, &inv.Currency,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.TotalAmount, &inv.PaidAmount,
		&inv.Status, &inv.DueAt, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	return r.fetch(ctx, `SELECT `+invoiceColumns+` FROM big_invoices WHERE id=$1`, id)
}

func (r *repository) GetByQuotation(ctx context.Context, quotationID int64) (*Invoice, error) {
	return r.fetch(ctx, `SELECT `+invoiceColumns+` FROM big_invoices WHERE quotation_id=$1`, quotationID)
}

func (r *repository) fetch(ctx context.Context, query string, arg any) (*Invoice, error) {
	inv, err := ScanInvoice(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, invoice_id, description, quantity, unit_price, amount, line_order
FROM big_invoice_lines WHERE invoice_id=$1 ORDER BY line_order, id`, inv.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line InvoiceLine
		if err := rows.Scan(&line.ID, &line.InvoiceID, &line.Description, &line.Quantity, &line.UnitPrice, &line.Amount, &line.LineOrder); err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	where := "WHERE 1=1"
	var args []any
	if req.CustomerID != nil {
		args = append(args, *req.CustomerID)
		where += fmt.Sprintf(" AND customer_id=$%d", len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM big_invoices "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, req.Limit, req.Offset)
	query := fmt.Sprintf("SELECT "+invoiceColumns+" FROM big_invoices %s ORDER BY id DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := ScanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *repository) Cancel(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE big_invoices SET status='CANCELLED', updated_at=NOW()
WHERE id=$1 AND status <> 'PAID' AND status <> 'CANCELLED'`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
