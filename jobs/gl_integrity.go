package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/bigblink-erp/bigblink-erp/internal/jobs"
)

const defaultIntegrityLookbackDays = 90

// GLIntegrityJob scans posted journal batches whose lines no longer balance.
// Posting validates balance up front, so a hit here means either manual
// tampering or a partial write that escaped the transaction; it is logged and
// counted, never auto-corrected.
type GLIntegrityJob struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewGLIntegrityJob constructs the integrity job.
func NewGLIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	return &GLIntegrityJob{pool: pool, logger: logger, metrics: metrics}
}

// Handle processes TaskGLIntegrity tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskGLIntegrity)
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	lookback := payload.LookbackDays
	if lookback <= 0 {
		lookback = defaultIntegrityLookbackDays
	}

	rows, err := j.pool.Query(ctx, `SELECT e.batch_id, e.source_module, SUM(l.debit), SUM(l.credit)
FROM blink_journal_entries e
JOIN blink_journal_lines l ON l.je_id = e.id
WHERE e.status = 'POSTED' AND e.date >= NOW() - ($1 || ' days')::interval
GROUP BY e.batch_id, e.source_module
HAVING ROUND(SUM(l.debit)::numeric, 2) <> ROUND(SUM(l.credit)::numeric, 2)`, lookback)
	if err != nil {
		j.logger.Error("gl integrity scan", slog.Any("error", err))
		return tracker.End(err)
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var batchID, sourceModule string
		var debit, credit float64
		if err := rows.Scan(&batchID, &sourceModule, &debit, &credit); err != nil {
			return tracker.End(err)
		}
		found++
		j.metrics.AddImbalances(sourceModule, 1)
		j.logger.Error("unbalanced journal batch",
			slog.String("batch_id", batchID),
			slog.String("source_module", sourceModule),
			slog.Float64("debit", debit),
			slog.Float64("credit", credit))
	}
	if err := rows.Err(); err != nil {
		return tracker.End(err)
	}
	if found == 0 {
		j.logger.Info("gl integrity sweep clean", slog.Int("lookback_days", lookback))
	}
	return tracker.End(nil)
}
