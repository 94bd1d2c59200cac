package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rows    []TimelineRow
	filters TimelineFilters
	limit   int
	offset  int
}

func (f *fakeRepo) Timeline(_ context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	f.filters = filters
	f.limit = limit
	f.offset = offset
	if limit < len(f.rows) {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, n)
	base := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = TimelineRow{
			At:       base.Add(-time.Duration(i) * time.Minute),
			ActorID:  7,
			Actor:    "finance@bigblink.local",
			Action:   "APPROVE",
			Entity:   "quotation",
			EntityID: "q-1",
		}
	}
	return rows
}

func TestTimelineDefaultsDateRangeToLastSevenDays(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	now := time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, now, repo.filters.To)
	assert.Equal(t, now.Add(-7*24*time.Hour), repo.filters.From)
}

func TestTimelineClampsRangeToNinetyDays(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	to := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)
	from := to.AddDate(-1, 0, 0)
	_, err := svc.Timeline(context.Background(), TimelineFilters{From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, to.Add(-90*24*time.Hour), repo.filters.From)
}

func TestTimelineDetectsNextPage(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(21)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 20)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 21, repo.limit)
	assert.Equal(t, 0, repo.offset)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 20, repo.offset)
	assert.Equal(t, 2, result.Paging.Page)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Paging.PageSize)
	assert.Equal(t, 51, repo.limit)
}

func TestExportCSVWritesHeaderAndRows(t *testing.T) {
	repo := &fakeRepo{rows: makeRows(2)}
	svc := NewService(repo)

	data, err := svc.ExportCSV(context.Background(), TimelineFilters{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "occurred_at,actor_id,actor,action,entity,entity_id", lines[0])
	assert.Contains(t, lines[1], "finance@bigblink.local")
	assert.Contains(t, lines[1], "APPROVE")
}
