package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/bigblink-erp/bigblink-erp/internal/finance/aging"
)

type fakeExpirer struct {
	asOf    time.Time
	expired int64
	err     error
}

func (f *fakeExpirer) ExpireSent(ctx context.Context, asOf time.Time) (int64, error) {
	f.asOf = asOf
	return f.expired, f.err
}

type fakeSummarizer struct {
	invalidated int
	summary     aging.Summary
	err         error
}

func (f *fakeSummarizer) Invalidate(ctx context.Context) { f.invalidated++ }

func (f *fakeSummarizer) Summary(ctx context.Context) (aging.Summary, error) {
	return f.summary, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQuotesExpireJobSweepsAtCurrentTime(t *testing.T) {
	repo := &fakeExpirer{expired: 3}
	job := NewQuotesExpireJob(repo, testLogger(), nil)
	fixed := time.Date(2026, 7, 10, 6, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	err := job.Handle(context.Background(), NewQuotesExpireTask())
	require.NoError(t, err)
	require.Equal(t, fixed, repo.asOf)
}

func TestQuotesExpireJobPropagatesError(t *testing.T) {
	repo := &fakeExpirer{err: errors.New("db down")}
	job := NewQuotesExpireJob(repo, testLogger(), nil)

	err := job.Handle(context.Background(), NewQuotesExpireTask())
	require.Error(t, err)
}

func TestAgingSnapshotJobRebuildsBothLedgers(t *testing.T) {
	receivables := &fakeSummarizer{summary: aging.Summary{Total: 100}}
	payables := &fakeSummarizer{summary: aging.Summary{Total: 50}}
	job := NewAgingSnapshotJob(receivables, payables, testLogger(), nil)

	err := job.Handle(context.Background(), NewAgingSnapshotTask())
	require.NoError(t, err)
	require.Equal(t, 1, receivables.invalidated)
	require.Equal(t, 1, payables.invalidated)
}

func TestAgingSnapshotJobFailsWhenRebuildFails(t *testing.T) {
	receivables := &fakeSummarizer{err: errors.New("redis down")}
	job := NewAgingSnapshotJob(receivables, nil, testLogger(), nil)

	err := job.Handle(context.Background(), NewAgingSnapshotTask())
	require.Error(t, err)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault, Type: task.Type()}, nil
}

func triggerRouter(client Enqueuer) chi.Router {
	r := chi.NewRouter()
	NewHandler(nil, client, testLogger()).MountRoutes(r)
	return r
}

func TestTriggerEnqueuesNamedTask(t *testing.T) {
	client := &fakeEnqueuer{}
	router := triggerRouter(client)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger/aging-snapshot", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, client.tasks, 1)
	require.Equal(t, TaskAgingSnapshot, client.tasks[0].Type())
	require.Contains(t, rec.Body.String(), `"type":"`+TaskAgingSnapshot+`"`)
}

func TestTriggerUnknownJobNotFound(t *testing.T) {
	client := &fakeEnqueuer{}
	router := triggerRouter(client)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, client.tasks)
}

func TestTriggerQueueDownIsUnavailable(t *testing.T) {
	client := &fakeEnqueuer{err: errors.New("redis down")}
	router := triggerRouter(client)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/trigger/gl-integrity", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
