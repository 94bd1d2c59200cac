package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the audit trail.
type Repository interface {
	Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Timeline(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT a.occurred_at, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.actor_id
		WHERE 1=1`)
	args := make([]any, 0, 7)

	if !filters.From.IsZero() {
		args = append(args, filters.From)
		fmt.Fprintf(&sb, " AND a.occurred_at >= $%d", len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		fmt.Fprintf(&sb, " AND a.occurred_at < $%d", len(args))
	}
	if filters.ActorID > 0 {
		args = append(args, filters.ActorID)
		fmt.Fprintf(&sb, " AND a.actor_id = $%d", len(args))
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		args = append(args, entity)
		fmt.Fprintf(&sb, " AND a.entity = $%d", len(args))
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		args = append(args, action)
		fmt.Fprintf(&sb, " AND a.action = $%d", len(args))
	}

	args = append(args, limit)
	fmt.Fprintf(&sb, " ORDER BY a.occurred_at DESC, a.id DESC LIMIT $%d", len(args))
	args = append(args, offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit timeline: %w", err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
