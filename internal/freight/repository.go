package freight

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound     = errors.New("freight: document not found")
	ErrDuplicateDoc = errors.New("freight: document number already exists")
)

type Repository interface {
	Get(ctx context.Context, id int64) (Document, error)
	ListByQuotation(ctx context.Context, quotationID int64) ([]Document, error)
	List(ctx context.Context, req ListRequest) ([]Document, int, error)
	Create(ctx context.Context, doc Document) (int64, error)
	Update(ctx context.Context, id int64, doc Document) error
	SetStatus(ctx context.Context, id int64, from, to Status) error
}

type ListRequest struct {
	Kind   *Kind
	Status *Status
	Limit  int
	Offset int
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const docColumns = `id, kind, number, quotation_id, invoice_id, carrier, vessel_or_flight, origin, destination, cargo_description, status, issued_at, released_at, created_by, created_at, updated_at`

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.Kind, &d.Number, &d.QuotationID, &d.InvoiceID, &d.Carrier, &d.VesselOrFlight,
		&d.Origin, &d.Destination, &d.CargoDescription, &d.Status, &d.IssuedAt, &d.ReleasedAt,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (r *repository) Get(ctx context.Context, id int64) (Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx, `SELECT `+docColumns+` FROM big_freight_documents WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return d, nil
}

func (r *repository) ListByQuotation(ctx context.Context, quotationID int64) ([]Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+docColumns+` FROM big_freight_documents WHERE quotation_id=$1 ORDER BY created_at, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Document, int, error) {
	where := "WHERE 1=1"
	var args []any
	if req.Kind != nil {
		args = append(args, *req.Kind)
		where += fmt.Sprintf(" AND kind=$%d", len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(" AND status=$%d", len(args))
	}
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM big_freight_documents "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, req.Limit, req.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT "+docColumns+" FROM big_freight_documents %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out, err := collect(rows)
	return out, total, err
}

func collect(rows pgx.Rows) ([]Document, error) {
	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, d Document) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO big_freight_documents
(kind, number, quotation_id, invoice_id, carrier, vessel_or_flight, origin, destination, cargo_description, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		d.Kind, d.Number, d.QuotationID, d.InvoiceID, d.Carrier, d.VesselOrFlight,
		d.Origin, d.Destination, d.CargoDescription, d.Status, d.CreatedBy).
		Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateDoc
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, d Document) error {
	cmd, err := r.db.Exec(ctx, `UPDATE big_freight_documents SET
carrier=$2, vessel_or_flight=$3, origin=$4, destination=$5, cargo_description=$6, invoice_id=$7, updated_at=NOW()
WHERE id=$1 AND status='DRAFT'`, id, d.Carrier, d.VesselOrFlight, d.Origin, d.Destination, d.CargoDescription, d.InvoiceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus applies a guarded transition. The from-status in the WHERE clause
// makes concurrent transitions lose cleanly.
func (r *repository) SetStatus(ctx context.Context, id int64, from, to Status) error {
	stamp := ""
	switch to {
	case StatusIssued:
		stamp = ", issued_at=NOW()"
	case StatusReleased:
		stamp = ", released_at=NOW()"
	}
	cmd, err := r.db.Exec(ctx, fmt.Sprintf(`UPDATE big_freight_documents SET status=$3%s, updated_at=NOW()
WHERE id=$1 AND status=$2`, stamp), id, from, to)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
