// Package aging derives aging buckets and settlement status for open
// receivable/payable balances. All functions are pure; callers supply the
// reference date so list views and reports stay reproducible.
package aging

import "time"

// Bucket labels for the days-past-due classification.
const (
	Bucket0to30  = "0-30"
	Bucket31to60 = "31-60"
	Bucket61to90 = "61-90"
	Bucket90Plus = "90+"
)

// Status values derived from paid/total/due-date.
const (
	StatusPaid    = "PAID"
	StatusPartial = "PARTIAL"
	StatusOverdue = "OVERDUE"
	StatusCurrent = "CURRENT"
)

// DaysPastDue returns whole days between due date and the reference date.
// Negative when the due date is still in the future.
func DaysPastDue(due, asOf time.Time) int {
	return int(asOf.Sub(due).Hours() / 24)
}

// Bucket classifies an outstanding balance by days past due. Anything not yet
// due falls into the first bucket regardless of how far out the due date is.
func Bucket(due, asOf time.Time) string {
	days := DaysPastDue(due, asOf)
	switch {
	case days <= 30:
		return Bucket0to30
	case days <= 60:
		return Bucket31to60
	case days <= 90:
		return Bucket61to90
	default:
		return Bucket90Plus
	}
}

// Status derives the settlement status of a balance.
func Status(paid, total float64, due, asOf time.Time) string {
	switch {
	case paid >= total:
		return StatusPaid
	case paid > 0:
		return StatusPartial
	case asOf.After(due):
		return StatusOverdue
	default:
		return StatusCurrent
	}
}

// Summary accumulates outstanding totals per bucket.
type Summary struct {
	Bucket0to30  float64 `json:"bucket_0_30"`
	Bucket31to60 float64 `json:"bucket_31_60"`
	Bucket61to90 float64 `json:"bucket_61_90"`
	Bucket90Plus float64 `json:"bucket_90_plus"`
	Total        float64 `json:"total"`
}

// Add accumulates an outstanding amount into the bucket for its due date.
func (s *Summary) Add(due, asOf time.Time, outstanding float64) {
	if outstanding <= 0 {
		return
	}
	switch Bucket(due, asOf) {
	case Bucket0to30:
		s.Bucket0to30 += outstanding
	case Bucket31to60:
		s.Bucket31to60 += outstanding
	case Bucket61to90:
		s.Bucket61to90 += outstanding
	default:
		s.Bucket90Plus += outstanding
	}
	s.Total += outstanding
}
