package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskQuotesExpire sweeps SENT quotations past their validity date.
	TaskQuotesExpire = "quotes:expire"
	// TaskGLIntegrity scans posted journal batches for imbalance.
	TaskGLIntegrity = "gl:integrity"
	// TaskAgingSnapshot rebuilds the cached AR/AP aging summaries.
	TaskAgingSnapshot = "finance:aging-snapshot"
	// TaskIdempotencyCleanup prunes stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// GLIntegrityPayload bounds how far back the integrity sweep looks.
type GLIntegrityPayload struct {
	LookbackDays int `json:"lookback_days"`
}

// NewQuotesExpireTask constructs the quotation expiry task.
func NewQuotesExpireTask() *asynq.Task {
	return asynq.NewTask(TaskQuotesExpire, nil)
}

// NewGLIntegrityTask constructs the ledger integrity task.
func NewGLIntegrityTask(lookbackDays int) (*asynq.Task, error) {
	data, err := json.Marshal(GLIntegrityPayload{LookbackDays: lookbackDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, data), nil
}

// NewAgingSnapshotTask constructs the aging snapshot task.
func NewAgingSnapshotTask() *asynq.Task {
	return asynq.NewTask(TaskAgingSnapshot, nil)
}

// NewIdempotencyCleanupTask constructs the idempotency cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
