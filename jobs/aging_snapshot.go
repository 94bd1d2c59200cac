package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/bigblink-erp/bigblink-erp/internal/finance/aging"
	jobmetrics "github.com/bigblink-erp/bigblink-erp/internal/jobs"
)

// AgingSummarizer rebuilds a cached aging summary.
type AgingSummarizer interface {
	Invalidate(ctx context.Context)
	Summary(ctx context.Context) (aging.Summary, error)
}

// AgingSnapshotJob recomputes the AR and AP aging summaries so the cache is
// warm before the first read of the day.
type AgingSnapshotJob struct {
	receivables AgingSummarizer
	payables    AgingSummarizer
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
}

// NewAgingSnapshotJob constructs the snapshot job.
func NewAgingSnapshotJob(receivables, payables AgingSummarizer, logger *slog.Logger, metrics *jobmetrics.Metrics) *AgingSnapshotJob {
	return &AgingSnapshotJob{receivables: receivables, payables: payables, logger: logger, metrics: metrics}
}

// Handle processes TaskAgingSnapshot tasks.
func (j *AgingSnapshotJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskAgingSnapshot)
	for name, svc := range map[string]AgingSummarizer{"ar": j.receivables, "ap": j.payables} {
		if svc == nil {
			continue
		}
		svc.Invalidate(ctx)
		summary, err := svc.Summary(ctx)
		if err != nil {
			j.logger.Error("rebuild aging summary", slog.String("ledger", name), slog.Any("error", err))
			return tracker.End(err)
		}
		j.logger.Info("aging snapshot refreshed",
			slog.String("ledger", name),
			slog.Float64("total", summary.Total))
	}
	return tracker.End(nil)
}
