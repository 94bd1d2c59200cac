package quotations

import "time"

type QuotationStatus string

const (
	QuotationStatusDraft         QuotationStatus = "DRAFT"
	QuotationStatusSent          QuotationStatus = "SENT"
	QuotationStatusApproved      QuotationStatus = "APPROVED"
	QuotationStatusRejected      QuotationStatus = "REJECTED"
	QuotationStatusExpired       QuotationStatus = "EXPIRED"
	QuotationStatusPendingReview QuotationStatus = "PENDING_REVIEW"
)

// transitions is the single authority on quotation lifecycle. Every status
// write goes through CanTransition; no handler carries its own inline guard.
var transitions = map[QuotationStatus][]QuotationStatus{
	QuotationStatusDraft:         {QuotationStatusSent, QuotationStatusApproved, QuotationStatusRejected},
	QuotationStatusSent:          {QuotationStatusApproved, QuotationStatusRejected, QuotationStatusExpired},
	QuotationStatusApproved:      {QuotationStatusPendingReview},
	QuotationStatusPendingReview: {QuotationStatusApproved, QuotationStatusRejected},
}

// CanTransition reports whether a quotation may move from one status to
// another.
func CanTransition(from, to QuotationStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Quotation struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number"`
	CustomerID  int64           `json:"customer_id"`
	QuoteDate   time.Time       `json:"quote_date"`
	ValidUntil  time.Time       `json:"valid_until"`
	Status      QuotationStatus `json:"status"`
	Currency    string          `json:"currency"`
	Subtotal    float64         `json:"subtotal"`
	TaxRate     float64         `json:"tax_rate"`
	TaxAmount   float64         `json:"tax_amount"`
	TotalAmount float64         `json:"total_amount"`
	Revision    int             `json:"revision"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []QuotationLine `json:"lines,omitempty"`
}

type QuotationLine struct {
	ID          int64   `json:"id"`
	QuotationID int64   `json:"quotation_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
	LineOrder   int     `json:"line_order"`
}
