package journals

import (
	"time"

	"github.com/google/uuid"
)

// JournalStatus enumerates journal lifecycle values.
type JournalStatus string

const (
	JournalStatusPosted JournalStatus = "POSTED"
	JournalStatusVoid   JournalStatus = "VOID"
)

// JournalEntry captures one balanced posting batch. BatchID groups the rows
// of a logical double-entry transaction for display and reversal; Number is
// the server-assigned sequence.
type JournalEntry struct {
	ID           int64         `json:"id"`
	Number       int64         `json:"number"`
	BatchID      uuid.UUID     `json:"batch_id"`
	PeriodID     int64         `json:"period_id"`
	Date         time.Time     `json:"date"`
	SourceModule string        `json:"source_module"`
	SourceID     uuid.UUID     `json:"source_id"`
	Memo         string        `json:"memo"`
	PostedBy     int64         `json:"posted_by"`
	PostedAt     time.Time     `json:"posted_at"`
	Status       JournalStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	Lines        []JournalLine `json:"lines,omitempty"`
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID        int64     `json:"id"`
	JournalID int64     `json:"journal_id"`
	AccountID int64     `json:"account_id"`
	Debit     float64   `json:"debit"`
	Credit    float64   `json:"credit"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
