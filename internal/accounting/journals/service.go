package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/periods"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
	internalShared "github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.GetWithLines(ctx, entryID)
}

// PostJournal writes one balanced batch in a single transaction: period check
// under lock, entry, lines, source link. A duplicate source link aborts the
// whole batch and reports ErrSourceAlreadyLinked so callers can treat the
// repeat delivery as already handled.
func (s *Service) PostJournal(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	batchID := uuid.New()
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForUpdate(ctx, input.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == periods.PeriodStatusLocked {
			return shared.ErrPeriodLocked
		}
		if period.Status != periods.PeriodStatusOpen {
			return shared.ErrInvalidPeriod
		}
		if input.Date.Before(period.StartDate) || input.Date.After(period.EndDate) {
			return shared.ErrDateOutOfRange
		}
		inserted, err := tx.InsertJournalEntry(ctx, input, batchID)
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, inserted.ID, input.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, input.SourceModule, input.SourceID, inserted.ID); err != nil {
			if errors.Is(err, shared.ErrSourceConflict) {
				return shared.ErrSourceAlreadyLinked
			}
			return err
		}
		inserted.Lines = toJournalLines(inserted.ID, input.Lines, s.now())
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  input.PostedBy,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":        entry.Number,
				"batch_id":      entry.BatchID.String(),
				"source_module": input.SourceModule,
				"source_id":     input.SourceID.String(),
			},
			At: s.now(),
		})
	}
	return entry, nil
}

func (s *Service) VoidJournal(ctx context.Context, input VoidInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}
	var entry JournalEntry
	var lines []JournalLine
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, currLines, err := tx.GetJournalWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		period, err := tx.GetPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if period.Status == periods.PeriodStatusLocked {
			return shared.ErrPeriodLocked
		}
		if period.Status == periods.PeriodStatusClosed {
			return shared.ErrInvalidPeriod
		}
		if current.Status != JournalStatusPosted {
			return shared.ErrInvalidStatus
		}
		if err := tx.UpdateJournalStatus(ctx, current.ID, JournalStatusVoid); err != nil {
			return err
		}
		entry = current
		entry.Status = JournalStatusVoid
		lines = currLines
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "journal.void",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"reason": input.Reason,
			},
			At: s.now(),
		})
	}
	return entry, nil
}

// ReverseJournal posts a mirror batch. When the original period is no longer
// open the reversal lands on the first day of the next open period.
func (s *Service) ReverseJournal(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, lines, err := tx.GetJournalWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if original.Status != JournalStatusPosted {
			return shared.ErrInvalidStatus
		}
		period, err := tx.GetPeriodForUpdate(ctx, original.PeriodID)
		if err != nil {
			return err
		}
		targetPeriod := period
		targetDate := original.Date
		if input.TargetDate != nil {
			targetDate = *input.TargetDate
		}
		if period.Status != periods.PeriodStatusOpen {
			if period.Status == periods.PeriodStatusLocked && !input.Override {
				return shared.ErrPeriodLocked
			}
			next, err := tx.GetNextOpenPeriodAfter(ctx, period.EndDate.AddDate(0, 0, 1))
			if err != nil {
				return err
			}
			targetPeriod = next
			targetDate = next.StartDate
		}
		if targetDate.Before(targetPeriod.StartDate) || targetDate.After(targetPeriod.EndDate) {
			return shared.ErrDateOutOfRange
		}
		posting := PostingInput{
			PeriodID:     targetPeriod.ID,
			Date:         targetDate,
			SourceModule: original.SourceModule + ":REVERSAL",
			SourceID:     uuid.New(),
			Memo:         defaultReversalMemo(input.Memo, original.Number),
			PostedBy:     input.ActorID,
			Lines:        reverseLines(lines),
		}
		inserted, err := tx.InsertJournalEntry(ctx, posting, uuid.New())
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, inserted.ID, posting.Lines); err != nil {
			return err
		}
		if err := tx.LinkSource(ctx, posting.SourceModule, posting.SourceID, inserted.ID); err != nil {
			return err
		}
		reversal = inserted
		reversal.Lines = toJournalLines(inserted.ID, posting.Lines, s.now())
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, internalShared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "journal.reverse",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", input.EntryID),
			Meta: map[string]any{
				"reversal_id":     reversal.ID,
				"reversal_number": reversal.Number,
			},
			At: s.now(),
		})
	}
	return reversal, nil
}

func reverseLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
		})
	}
	return out
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			JournalID: entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			CreatedAt: ts,
			UpdatedAt: ts,
		})
	}
	return out
}

func defaultReversalMemo(memo string, number int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}
