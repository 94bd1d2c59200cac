package costs

import "time"

type CostStatus string

const (
	CostStatusPending  CostStatus = "PENDING"
	CostStatusApproved CostStatus = "APPROVED"
	CostStatusPaid     CostStatus = "PAID"
)

// CostRatio is the vendor-side share of each quotation line. Cost amounts are
// the raw float product of this ratio and the line amount; no currency
// rounding is applied when the rows are generated.
const CostRatio = 0.7

// Cost is a vendor-side COGS row spawned from one quotation line. Rows carry
// no stable identity across re-approvals: the set is deleted and regenerated
// each time the source quotation is approved again.
type Cost struct {
	ID          int64      `json:"id"`
	Number      string     `json:"number"`
	QuotationID int64      `json:"quotation_id"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Status      CostStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CanTransition guards the vendor-side workflow.
func CanTransition(from, to CostStatus) bool {
	switch from {
	case CostStatusPending:
		return to == CostStatusApproved
	case CostStatusApproved:
		return to == CostStatusPaid
	}
	return false
}
