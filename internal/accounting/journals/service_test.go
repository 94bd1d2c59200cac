package journals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/periods"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
)

type memoryJournalRepo struct {
	periods map[int64]periods.Period
	entries map[int64]JournalEntry
	lines   map[int64][]JournalLine
	links   map[string]int64
	nextID  int64
	nextSeq int64
}

func newMemoryJournalRepo() *memoryJournalRepo {
	return &memoryJournalRepo{
		periods: make(map[int64]periods.Period),
		entries: make(map[int64]JournalEntry),
		lines:   make(map[int64][]JournalLine),
		links:   make(map[string]int64),
	}
}

func (r *memoryJournalRepo) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		if filter.SourceModule != "" && e.SourceModule != filter.SourceModule {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryJournalRepo) GetWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	e.Lines = append([]JournalLine(nil), r.lines[entryID]...)
	return e, nil
}

func (r *memoryJournalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryJournalTx{repo: r})
}

type memoryJournalTx struct {
	repo *memoryJournalRepo
}

func (tx *memoryJournalTx) InsertJournalEntry(ctx context.Context, in PostingInput, batchID uuid.UUID) (JournalEntry, error) {
	tx.repo.nextID++
	tx.repo.nextSeq++
	entry := JournalEntry{
		ID:           tx.repo.nextID,
		Number:       tx.repo.nextSeq,
		BatchID:      batchID,
		PeriodID:     in.PeriodID,
		Date:         in.Date,
		SourceModule: in.SourceModule,
		SourceID:     in.SourceID,
		Memo:         in.Memo,
		PostedBy:     in.PostedBy,
		PostedAt:     time.Now(),
		Status:       JournalStatusPosted,
	}
	tx.repo.entries[entry.ID] = entry
	return entry, nil
}

func (tx *memoryJournalTx) InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		tx.repo.lines[entryID] = append(tx.repo.lines[entryID], JournalLine{
			JournalID: entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
		})
	}
	return nil
}

func (tx *memoryJournalTx) LinkSource(ctx context.Context, module string, ref uuid.UUID, entryID int64) error {
	key := module + ":" + ref.String()
	if _, exists := tx.repo.links[key]; exists {
		return shared.ErrSourceConflict
	}
	tx.repo.links[key] = entryID
	return nil
}

func (tx *memoryJournalTx) GetJournalWithLines(ctx context.Context, entryID int64) (JournalEntry, []JournalLine, error) {
	e, ok := tx.repo.entries[entryID]
	if !ok {
		return JournalEntry{}, nil, shared.ErrJournalNotFound
	}
	return e, append([]JournalLine(nil), tx.repo.lines[entryID]...), nil
}

func (tx *memoryJournalTx) UpdateJournalStatus(ctx context.Context, entryID int64, status JournalStatus) error {
	e, ok := tx.repo.entries[entryID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	e.Status = status
	tx.repo.entries[entryID] = e
	return nil
}

func (tx *memoryJournalTx) GetPeriodForUpdate(ctx context.Context, periodID int64) (periods.Period, error) {
	p, ok := tx.repo.periods[periodID]
	if !ok {
		return periods.Period{}, shared.ErrInvalidPeriod
	}
	return p, nil
}

func (tx *memoryJournalTx) GetNextOpenPeriodAfter(ctx context.Context, date time.Time) (periods.Period, error) {
	for _, p := range tx.repo.periods {
		if p.Status == periods.PeriodStatusOpen && !p.StartDate.Before(date) {
			return p, nil
		}
	}
	return periods.Period{}, shared.ErrInvalidPeriod
}

func openPeriod(id int64, year int, month time.Month) periods.Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return periods.Period{
		ID:        id,
		Code:      start.Format("2006-01"),
		StartDate: start,
		EndDate:   start.AddDate(0, 1, -1),
		Status:    periods.PeriodStatusOpen,
	}
}

func balancedInput(periodID int64, date time.Time) PostingInput {
	return PostingInput{
		PeriodID:     periodID,
		Date:         date,
		SourceModule: "AR",
		SourceID:     uuid.New(),
		Memo:         "payment PMT-2026-000001",
		PostedBy:     7,
		Lines: []PostingLineInput{
			{AccountID: 1, Debit: 2220000},
			{AccountID: 2, Credit: 2220000},
		},
	}
}

func TestPostJournalBalanced(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.periods[1] = openPeriod(1, 2026, time.March)
	svc := NewService(repo, nil)

	entry, err := svc.PostJournal(context.Background(), balancedInput(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, JournalStatusPosted, entry.Status)
	require.NotEqual(t, uuid.Nil, entry.BatchID)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, int64(1), entry.Number)
}

func TestPostJournalRejectsUnbalanced(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.periods[1] = openPeriod(1, 2026, time.March)
	svc := NewService(repo, nil)

	input := balancedInput(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	input.Lines[1].Credit = 2000000
	_, err := svc.PostJournal(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	require.Empty(t, repo.entries)
}

func TestPostJournalRejectsSingleLine(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)
	_, err := svc.PostJournal(context.Background(), PostingInput{
		PeriodID:     1,
		SourceModule: "AR",
		SourceID:     uuid.New(),
		Lines:        []PostingLineInput{{AccountID: 1, Debit: 100}},
	})
	require.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestPostJournalRejectsNegativeAndMixedLines(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	input := balancedInput(1, time.Now())
	input.Lines[0].Debit = -5
	input.Lines[1].Credit = -5
	_, err := svc.PostJournal(context.Background(), input)
	require.Error(t, err)

	input = balancedInput(1, time.Now())
	input.Lines[0].Credit = input.Lines[0].Debit
	_, err = svc.PostJournal(context.Background(), input)
	require.Error(t, err)
}

func TestPostJournalIdempotentOnSourceLink(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.periods[1] = openPeriod(1, 2026, time.March)
	svc := NewService(repo, nil)

	input := balancedInput(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	_, err := svc.PostJournal(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.PostJournal(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
}

func TestPostJournalRejectsDateOutsidePeriod(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.periods[1] = openPeriod(1, 2026, time.March)
	svc := NewService(repo, nil)

	_, err := svc.PostJournal(context.Background(), balancedInput(1, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)))
	require.ErrorIs(t, err, shared.ErrDateOutOfRange)
}

func TestPostJournalRejectsLockedPeriod(t *testing.T) {
	repo := newMemoryJournalRepo()
	p := openPeriod(1, 2026, time.March)
	p.Status = periods.PeriodStatusLocked
	repo.periods[1] = p
	svc := NewService(repo, nil)

	_, err := svc.PostJournal(context.Background(), balancedInput(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
}

func TestVoidJournal(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.periods[1] = openPeriod(1, 2026, time.March)
	svc := NewService(repo, nil)

	entry, err := svc.PostJournal(context.Background(), balancedInput(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	voided, err := svc.VoidJournal(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 7, Reason: "duplicate"})
	require.NoError(t, err)
	require.Equal(t, JournalStatusVoid, voided.Status)

	_, err = svc.VoidJournal(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 7})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestReverseJournalMirrorsLines(t *testing.T) {
	repo := newMemoryJournalRepo()
	repo.periods[1] = openPeriod(1, 2026, time.March)
	svc := NewService(repo, nil)

	entry, err := svc.PostJournal(context.Background(), balancedInput(1, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	reversal, err := svc.ReverseJournal(context.Background(), ReverseInput{EntryID: entry.ID, ActorID: 7})
	require.NoError(t, err)
	require.Len(t, reversal.Lines, 2)
	require.Equal(t, entry.Lines[0].Debit, reversal.Lines[0].Credit)
	require.Equal(t, entry.Lines[1].Credit, reversal.Lines[1].Debit)
	require.Equal(t, "AR:REVERSAL", reversal.SourceModule)
}
