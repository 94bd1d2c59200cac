package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
	defaultRange    = 7 * 24 * time.Hour
	maxRange        = 90 * 24 * time.Hour
	exportRowCap    = 10000
)

// Service coordinates audit timeline reads and exports.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Timeline returns one page of the audit trail. Missing date bounds
// default to the last seven days; a range wider than ninety days is
// clamped to protect the table scan.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	filters = s.normalise(filters)

	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	// Fetch one extra row to detect whether another page exists.
	rows, err := s.repo.Timeline(ctx, filters, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return Result{
		Rows:   rows,
		Paging: PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext},
	}, nil
}

// ExportCSV renders the filtered trail as CSV, capped at ten thousand rows.
func (s *Service) ExportCSV(ctx context.Context, filters TimelineFilters) ([]byte, error) {
	filters = s.normalise(filters)
	rows, err := s.repo.Timeline(ctx, filters, exportRowCap, 0)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"occurred_at", "actor_id", "actor", "action", "entity", "entity_id"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.At.UTC().Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Actor,
			row.Action,
			row.Entity,
			row.EntityID,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write audit csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) normalise(filters TimelineFilters) TimelineFilters {
	now := s.now().UTC()
	if filters.To.IsZero() {
		filters.To = now
	}
	if filters.From.IsZero() {
		filters.From = filters.To.Add(-defaultRange)
	}
	if filters.To.Sub(filters.From) > maxRange {
		filters.From = filters.To.Add(-maxRange)
	}
	return filters
}
