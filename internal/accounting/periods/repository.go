package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
)

type Repository interface {
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error)
	EnsureOpenPeriod(ctx context.Context, date time.Time) (Period, error)
	List(ctx context.Context) ([]Period, error)
	Close(ctx context.Context, id int64, actorID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// FindOpenPeriodByDate returns the open period covering the supplied date.
func (r *repository) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	var period Period
	err := r.db.QueryRow(ctx, `SELECT id, code, start_date, end_date, status, closed_at, locked_by, created_at, updated_at
FROM periods WHERE status='OPEN' AND $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date).
		Scan(&period.ID, &period.Code, &period.StartDate, &period.EndDate, &period.Status, &period.ClosedAt, &period.LockedBy, &period.CreatedAt, &period.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrInvalidPeriod
		}
		return Period{}, err
	}
	return period, nil
}

// EnsureOpenPeriod creates the calendar-month period for date when no period
// covers it yet. A period that exists but is closed still fails the lookup so
// postings cannot sneak into a locked month.
func (r *repository) EnsureOpenPeriod(ctx context.Context, date time.Time) (Period, error) {
	period, err := r.FindOpenPeriodByDate(ctx, date)
	if err == nil {
		return period, nil
	}
	if !errors.Is(err, shared.ErrInvalidPeriod) {
		return Period{}, err
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM periods WHERE $1 BETWEEN start_date AND end_date)`, date).Scan(&exists); err != nil {
		return Period{}, err
	}
	if exists {
		return Period{}, shared.ErrInvalidPeriod
	}
	start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	code := start.Format("2006-01")
	err = r.db.QueryRow(ctx, `INSERT INTO periods (code, start_date, end_date, status)
VALUES ($1, $2, $3, 'OPEN')
ON CONFLICT (code) DO UPDATE SET updated_at = NOW()
RETURNING id, code, start_date, end_date, status, closed_at, locked_by, created_at, updated_at`,
		code, start, end).
		Scan(&period.ID, &period.Code, &period.StartDate, &period.EndDate, &period.Status, &period.ClosedAt, &period.LockedBy, &period.CreatedAt, &period.UpdatedAt)
	if err != nil {
		return Period{}, err
	}
	if period.Status != PeriodStatusOpen {
		return Period{}, shared.ErrInvalidPeriod
	}
	return period, nil
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, start_date, end_date, status, closed_at, locked_by, created_at, updated_at
FROM periods ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Code, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.LockedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) Close(ctx context.Context, id int64, actorID int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE periods SET status='CLOSED', closed_at=NOW(), locked_by=$2, updated_at=NOW()
WHERE id=$1 AND status='OPEN'`, id, actorID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrInvalidPeriod
	}
	return nil
}
