package ap

import (
	"context"
	"time"

	"github.com/bigblink-erp/bigblink-erp/internal/finance/aging"
)

// TransactionStatus enumerates AP transaction statuses.
type TransactionStatus string

const (
	StatusUnpaid  TransactionStatus = "UNPAID"
	StatusPartial TransactionStatus = "PARTIAL"
	StatusPaid    TransactionStatus = "PAID"
)

// Transaction is the payable opened when a purchase order is approved.
type Transaction struct {
	ID              int64             `json:"id"`
	Number          string            `json:"number"`
	PurchaseOrderID int64             `json:"purchase_order_id"`
	SupplierID      int64             `json:"supplier_id"`
	OriginalAmount  float64           `json:"original_amount"`
	PaidAmount      float64           `json:"paid_amount"`
	DueAt           time.Time         `json:"due_at"`
	Status          TransactionStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Outstanding is the single definition of the open balance.
func (t Transaction) Outstanding() float64 {
	return t.OriginalAmount - t.PaidAmount
}

// TransactionView is the read shape of a payable: the stored row plus the
// balance, aging bucket and settlement status derived against the read time.
type TransactionView struct {
	Transaction
	Outstanding float64 `json:"outstanding"`
	AgingBucket string  `json:"aging_bucket"`
	AgingStatus string  `json:"aging_status"`
}

// View derives the read-time fields as of the supplied moment.
func (t Transaction) View(asOf time.Time) TransactionView {
	return TransactionView{
		Transaction: t,
		Outstanding: t.Outstanding(),
		AgingBucket: aging.Bucket(t.DueAt, asOf),
		AgingStatus: aging.Status(t.PaidAmount, t.OriginalAmount, t.DueAt, asOf),
	}
}

// DeriveStatus computes the stored status after a paid-amount change.
func DeriveStatus(paid, original float64) TransactionStatus {
	switch {
	case original-paid <= 0:
		return StatusPaid
	case paid > 0:
		return StatusPartial
	default:
		return StatusUnpaid
	}
}

// Payment records one disbursement against a transaction.
type Payment struct {
	ID            int64     `json:"id"`
	Number        string    `json:"number"`
	TransactionID int64     `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
	Method        string    `json:"method"`
	Reference     *string   `json:"reference,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentInput carries a disbursement request.
type PaymentInput struct {
	TransactionID int64     `json:"transaction_id" validate:"required,gt=0"`
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	PaidAt        time.Time `json:"paid_at" validate:"required"`
	Method        string    `json:"method" validate:"required,max=40"`
	Reference     *string   `json:"reference,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

// PaymentRecordedEvent is emitted after a payment commits so the ledger can
// post the cash movement.
type PaymentRecordedEvent struct {
	TransactionID   int64
	PaymentID       int64
	PaymentNumber   string
	PurchaseOrderID int64
	SupplierID      int64
	Amount          float64
	PaidAt          time.Time
}

// IntegrationHandler receives AP domain events after commit.
type IntegrationHandler interface {
	HandleAPPaymentRecorded(ctx context.Context, evt PaymentRecordedEvent) error
}

// PurchaseOrderSyncer pushes the cumulative paid amount back onto the
// originating purchase order. Implemented by the procurement repository.
type PurchaseOrderSyncer interface {
	SyncPaid(ctx context.Context, purchaseOrderID int64, paid float64) error
}
