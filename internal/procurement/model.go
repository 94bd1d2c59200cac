package procurement

import "time"

// Status enumerates purchase order statuses.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusApproved, StatusCancelled},
	StatusApproved: {StatusClosed, StatusCancelled},
}

// CanTransition reports whether a purchase order may move between two states.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PurchaseOrder struct {
	ID          int64      `json:"id"`
	Number      string     `json:"number"`
	SupplierID  int64      `json:"supplier_id"`
	Description *string    `json:"description,omitempty"`
	Currency    string     `json:"currency"`
	TotalAmount float64    `json:"total_amount"`
	PaidAmount  float64    `json:"paid_amount"`
	Status      Status     `json:"status"`
	OrderedAt   time.Time  `json:"ordered_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Lines       []Line     `json:"lines,omitempty"`
}

type Line struct {
	ID              int64   `json:"id"`
	PurchaseOrderID int64   `json:"purchase_order_id"`
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	Amount          float64 `json:"amount"`
	LineOrder       int     `json:"line_order"`
}
