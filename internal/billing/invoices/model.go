package invoices

import "time"

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusUnpaid    InvoiceStatus = "UNPAID"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is generated from an approved quotation and only mutated by
// re-approval (totals and lines regenerated) or payment recording (paid
// accretion).
type Invoice struct {
	ID          int64         `json:"id"`
	Number      string        `json:"number"`
	QuotationID *int64        `json:"quotation_id,omitempty"`
	CustomerID  int64         `json:"customer_id"`
	Currency    string        `json:"currency"`
	Subtotal    float64       `json:"subtotal"`
	TaxRate     float64       `json:"tax_rate"`
	TaxAmount   float64       `json:"tax_amount"`
	TotalAmount float64       `json:"total_amount"`
	PaidAmount  float64       `json:"paid_amount"`
	Status      InvoiceStatus `json:"status"`
	DueAt       time.Time     `json:"due_at"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Lines       []InvoiceLine `json:"lines,omitempty"`
}

type InvoiceLine struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
	LineOrder   int     `json:"line_order"`
}

// Outstanding is always derived, never stored.
func (i Invoice) Outstanding() float64 {
	return i.TotalAmount - i.PaidAmount
}

// DeriveStatus computes the payment status after a paid-amount change.
// Cancelled invoices keep their status.
func DeriveStatus(current InvoiceStatus, paid, total float64) InvoiceStatus {
	if current == InvoiceStatusCancelled {
		return current
	}
	switch {
	case total-paid <= 0:
		return InvoiceStatusPaid
	case paid > 0:
		return InvoiceStatusPartial
	default:
		return InvoiceStatusUnpaid
	}
}
