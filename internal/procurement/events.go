package procurement

import (
	"context"
	"time"
)

// ApprovedEvent is emitted after a purchase order approval commits. The
// payable it names is already inserted in the same transaction.
type ApprovedEvent struct {
	PurchaseOrderID int64
	Number          string
	SupplierID      int64
	APTransactionID int64
	APNumber        string
	Total           float64
	ApprovedAt      time.Time
}

// IntegrationHandler receives procurement domain events after commit.
type IntegrationHandler interface {
	HandlePOApproved(ctx context.Context, evt ApprovedEvent) error
}
