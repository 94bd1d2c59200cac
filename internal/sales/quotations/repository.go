package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigblink-erp/bigblink-erp/internal/billing/invoices"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/db"
)

var ErrNotFound = errors.New("record not found")

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type Repository interface {
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetByNumber(ctx context.Context, number string) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	ExpireSent(ctx context.Context, asOf time.Time) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository bundles every write the approval orchestrator performs in one
// transaction. Invoice, cost and AR writes live here rather than in their own
// modules because the whole business event must commit or roll back together.
type TxRepository interface {
	GetQuotationForUpdate(ctx context.Context, id int64) (Quotation, error)
	GetLines(ctx context.Context, quotationID int64) ([]QuotationLine, error)
	InsertQuotation(ctx context.Context, q Quotation) (int64, error)
	InsertLine(ctx context.Context, line QuotationLine) (int64, error)
	DeleteLines(ctx context.Context, quotationID int64) error
	UpdateHeader(ctx context.Context, id int64, q Quotation) error
	UpdateStatus(ctx context.Context, id int64, status QuotationStatus, revision int) error
	NextSequence(ctx context.Context, docType, period string) (int64, error)

	// Invoice writes in transaction context.
	InsertInvoice(ctx context.Context, inv invoices.Invoice) (int64, error)
	InsertInvoiceLine(ctx context.Context, line invoices.InvoiceLine) error
	GetInvoiceByQuotation(ctx context.Context, quotationID int64) (invoices.Invoice, error)
	UpdateInvoiceTotals(ctx context.Context, invoiceID int64, subtotal, taxRate, taxAmount, total float64) error
	DeleteInvoiceLines(ctx context.Context, invoiceID int64) error

	// Cost writes in transaction context.
	InsertCost(ctx context.Context, quotationID int64, number, description string, amount float64) error
	DeleteCosts(ctx context.Context, quotationID int64) error
	SumCosts(ctx context.Context, quotationID int64) (float64, error)

	// AR transaction writes in transaction context.
	InsertARTransaction(ctx context.Context, invoiceID, customerID int64, number string, original float64, dueAt time.Time) (int64, error)
	UpdateARTransactionOriginal(ctx context.Context, invoiceID int64, original float64) error
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{db: tx})
	})
}

const quotationColumns = `id, number, customer_id, quote_date, valid_until, status, currency, subtotal, tax_rate, tax_amount, total_amount, revision, notes, created_by, created_at, updated_at`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.Number, &q.CustomerID, &q.QuoteDate, &q.ValidUntil, &q.Status, &q.Currency,
		&q.Subtotal, &q.TaxRate, &q.TaxAmount, &q.TotalAmount, &q.Revision, &q.Notes, &q.CreatedBy,
		&q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func queryLines(ctx context.Context, conn dbtx, quotationID int64) ([]QuotationLine, error) {
	rows, err := conn.Query(ctx, `SELECT id, quotation_id, description, quantity, unit_price, amount, line_order
FROM big_quotation_lines WHERE quotation_id=$1 ORDER BY line_order, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []QuotationLine
	for rows.Next() {
		var line QuotationLine
		if err := rows.Scan(&line.ID, &line.QuotationID, &line.Description, &line.Quantity, &line.UnitPrice, &line.Amount, &line.LineOrder); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	return r.fetch(ctx, `SELECT `+quotationColumns+` FROM big_quotations WHERE id=$1`, id)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	return r.fetch(ctx, `SELECT `+quotationColumns+` FROM big_quotations WHERE number=$1`, number)
}

func (r *repository) fetch(ctx context.Context, query string, arg any) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	q.Lines, err = queryLines(ctx, r.db, q.ID)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
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
	if req.DateFrom != nil {
		args = append(args, *req.DateFrom)
		where += fmt.Sprintf(" AND quote_date >= $%d", len(args))
	}
	if req.DateTo != nil {
		args = append(args, *req.DateTo)
		where += fmt.Sprintf(" AND quote_date <= $%d", len(args))
	}
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM big_quotations "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, req.Limit, req.Offset)
	query := fmt.Sprintf("SELECT "+quotationColumns+" FROM big_quotations %s ORDER BY quote_date DESC, id DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

// ExpireSent moves SENT quotations past their validity to EXPIRED.
func (r *repository) ExpireSent(ctx context.Context, asOf time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE big_quotations SET status='EXPIRED', updated_at=NOW()
WHERE status='SENT' AND valid_until < $1`, asOf)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type txRepository struct {
	db dbtx
}

func (r *txRepository) GetQuotationForUpdate(ctx context.Context, id int64) (Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx, `SELECT `+quotationColumns+` FROM big_quotations WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quotation{}, ErrNotFound
		}
		return Quotation{}, err
	}
	return q, nil
}

func (r *txRepository) GetLines(ctx context.Context, quotationID int64) ([]QuotationLine, error) {
	return queryLines(ctx, r.db, quotationID)
}

func (r *txRepository) InsertQuotation(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO big_quotations
(number, customer_id, quote_date, valid_until, status, currency, subtotal, tax_rate, tax_amount, total_amount, revision, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`,
		q.Number, q.CustomerID, q.QuoteDate, q.ValidUntil, q.Status, q.Currency,
		q.Subtotal, q.TaxRate, q.TaxAmount, q.TotalAmount, q.Revision, q.Notes, q.CreatedBy).
		Scan(&id)
	return id, err
}

func (r *txRepository) InsertLine(ctx context.Context, line QuotationLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO big_quotation_lines
(quotation_id, description, quantity, unit_price, amount, line_order)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		line.QuotationID, line.Description, line.Quantity, line.UnitPrice, line.Amount, line.LineOrder).
		Scan(&id)
	return id, err
}

func (r *txRepository) DeleteLines(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM big_quotation_lines WHERE quotation_id=$1`, quotationID)
	return err
}

func (r *txRepository) UpdateHeader(ctx context.Context, id int64, q Quotation) error {
	_, err := r.db.Exec(ctx, `UPDATE big_quotations SET
quote_date=$2, valid_until=$3, currency=$4, subtotal=$5, tax_rate=$6, tax_amount=$7, total_amount=$8, notes=$9, updated_at=NOW()
WHERE id=$1`, id, q.QuoteDate, q.ValidUntil, q.Currency, q.Subtotal, q.TaxRate, q.TaxAmount, q.TotalAmount, q.Notes)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status QuotationStatus, revision int) error {
	cmd, err := r.db.Exec(ctx, `UPDATE big_quotations SET status=$2, revision=$3, updated_at=NOW() WHERE id=$1`, id, status, revision)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// NextSequence allocates the next number for a document type within a period
// via an upsert on doc_sequences. Runs inside the caller's transaction so a
// rollback releases the reservation with the rest of the event.
func (r *txRepository) NextSequence(ctx context.Context, docType, period string) (int64, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO doc_sequences (doc_type, period, seq)
VALUES ($1, $2, 1)
ON CONFLICT (doc_type, period)
DO UPDATE SET seq = doc_sequences.seq + 1
RETURNING seq`, docType, period).Scan(&seq)
	return seq, err
}

func (r *txRepository) InsertInvoice(ctx context.Context, inv invoices.Invoice) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO big_invoices
(number, quotation_id, customer_id, currency, subtotal, tax_rate, tax_amount, total_amount, paid_amount, status, due_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9,$10) RETURNING id`,
		inv.Number, inv.QuotationID, inv.CustomerID, inv.Currency, inv.Subtotal, inv.TaxRate, inv.TaxAmount,
		inv.TotalAmount, inv.Status, inv.DueAt).
		Scan(&id)
	return id, err
}

func (r *txRepository) InsertInvoiceLine(ctx context.Context, line invoices.InvoiceLine) error {
	_, err := r.db.Exec(ctx, `INSERT INTO big_invoice_lines
(invoice_id, description, quantity, unit_price, amount, line_order)
VALUES ($1,$2,$3,$4,$5,$6)`,
		line.InvoiceID, line.Description, line.Quantity, line.UnitPrice, line.Amount, line.LineOrder)
	return err
}

func (r *txRepository) GetInvoiceByQuotation(ctx context.Context, quotationID int64) (invoices.Invoice, error) {
	inv, err := invoices.ScanInvoice(r.db.QueryRow(ctx, `SELECT id, number, quotation_id, customer_id, currency, subtotal, tax_rate, tax_amount, total_amount, paid_amount, status, due_at, created_at, updated_at
FROM big_invoices WHERE quotation_id=$1 FOR UPDATE`, quotationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return invoices.Invoice{}, ErrNotFound
		}
		return invoices.Invoice{}, err
	}
	return inv, nil
}

func (r *txRepository) UpdateInvoiceTotals(ctx context.Context, invoiceID int64, subtotal, taxRate, taxAmount, total float64) error {
	_, err := r.db.Exec(ctx, `UPDATE big_invoices SET subtotal=$2, tax_rate=$3, tax_amount=$4, total_amount=$5, updated_at=NOW()
WHERE id=$1`, invoiceID, subtotal, taxRate, taxAmount, total)
	return err
}

func (r *txRepository) DeleteInvoiceLines(ctx context.Context, invoiceID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM big_invoice_lines WHERE invoice_id=$1`, invoiceID)
	return err
}

func (r *txRepository) InsertCost(ctx context.Context, quotationID int64, number, description string, amount float64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO big_costs (number, quotation_id, description, amount, status)
VALUES ($1,$2,$3,$4,'PENDING')`, number, quotationID, description, amount)
	return err
}

func (r *txRepository) DeleteCosts(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM big_costs WHERE quotation_id=$1`, quotationID)
	return err
}

func (r *txRepository) SumCosts(ctx context.Context, quotationID int64) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM big_costs WHERE quotation_id=$1`, quotationID).Scan(&total)
	return total, err
}

func (r *txRepository) InsertARTransaction(ctx context.Context, invoiceID, customerID int64, number string, original float64, dueAt time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO blink_ar_transactions
(number, invoice_id, customer_id, original_amount, paid_amount, due_at, status)
VALUES ($1,$2,$3,$4,0,$5,'UNPAID') RETURNING id`,
		number, invoiceID, customerID, original, dueAt).
		Scan(&id)
	return id, err
}

func (r *txRepository) UpdateARTransactionOriginal(ctx context.Context, invoiceID int64, original float64) error {
	_, err := r.db.Exec(ctx, `UPDATE blink_ar_transactions SET original_amount=$2,
status = CASE WHEN paid_amount >= $2 THEN 'PAID' WHEN paid_amount > 0 THEN 'PARTIAL' ELSE 'UNPAID' END,
updated_at=NOW() WHERE invoice_id=$1`, invoiceID, original)
	return err
}
