package quotations

import (
	"context"
	"time"
)

// QuotationApprovedEvent carries everything the ledger hooks need after an
// approval commits. Revision distinguishes re-approvals so each one posts its
// own batch exactly once. Prev totals hold what the previous revision already
// posted (zero on first approval) so the hook books only the difference and
// the ledger always carries the current totals, never their sum.
type QuotationApprovedEvent struct {
	QuotationID      int64
	Number           string
	Revision         int
	CustomerID       int64
	ApprovedAt       time.Time
	InvoiceID        int64
	InvoiceNumber    string
	InvoiceTotal     float64
	CostTotal        float64
	PrevInvoiceTotal float64
	PrevCostTotal    float64
}

// IntegrationHandler receives quotation domain events after commit.
type IntegrationHandler interface {
	HandleQuotationApproved(ctx context.Context, evt QuotationApprovedEvent) error
}
