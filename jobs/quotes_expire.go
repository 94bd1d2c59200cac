package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bigblink-erp/bigblink-erp/internal/jobs"
)

// QuotationExpirer sweeps SENT quotations whose validity has lapsed.
type QuotationExpirer interface {
	ExpireSent(ctx context.Context, asOf time.Time) (int64, error)
}

// QuotesExpireJob moves stale SENT quotations to EXPIRED on a schedule.
type QuotesExpireJob struct {
	repo    QuotationExpirer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewQuotesExpireJob constructs the expiry job.
func NewQuotesExpireJob(repo QuotationExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuotesExpireJob {
	return &QuotesExpireJob{repo: repo, logger: logger, metrics: metrics, now: time.Now}
}

// Handle processes TaskQuotesExpire tasks.
func (j *QuotesExpireJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskQuotesExpire)
	expired, err := j.repo.ExpireSent(ctx, j.now().UTC())
	if err != nil {
		j.logger.Error("expire quotations", slog.Any("error", err))
		return tracker.End(err)
	}
	if expired > 0 {
		j.logger.Info("expired quotations", slog.Int64("count", expired))
	}
	return tracker.End(nil)
}
