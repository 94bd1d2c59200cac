package ap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

// ErrExceedsOutstanding rejects a payment larger than the open balance.
var ErrExceedsOutstanding = errors.New("ap: payment exceeds outstanding balance")

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo     RepositoryPort
	poSync   PurchaseOrderSyncer
	audit    AuditPort
	hooks    IntegrationHandler
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo RepositoryPort, poSync PurchaseOrderSyncer, audit AuditPort, hooks IntegrationHandler, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		poSync:   poSync,
		audit:    audit,
		hooks:    hooks,
		logger:   logger,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// GetView returns one payable with its aging fields derived at read time.
func (s *Service) GetView(ctx context.Context, id int64) (TransactionView, error) {
	txn, err := s.repo.Get(ctx, id)
	if err != nil {
		return TransactionView{}, err
	}
	return txn.View(s.now()), nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Transaction, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// ListViews lists payables with aging recomputed per row against a single
// read timestamp.
func (s *Service) ListViews(ctx context.Context, filter ListFilter) ([]TransactionView, int, error) {
	list, total, err := s.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	asOf := s.now()
	views := make([]TransactionView, len(list))
	for i, txn := range list {
		views[i] = txn.View(asOf)
	}
	return views, total, nil
}

func (s *Service) ListPayments(ctx context.Context, transactionID int64) ([]Payment, error) {
	if _, err := s.repo.Get(ctx, transactionID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, transactionID)
}

// RecordPayment applies one disbursement to a payable. Balance checks run
// against the row locked inside the transaction. The purchase order's cached
// paid amount is refreshed after commit; the payable row is the source of
// truth, so a failed refresh is logged, not unwound.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput, actor shared.Actor) (Payment, error) {
	if err := s.validate.Struct(in); err != nil {
		return Payment{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	var (
		payment Payment
		evt     PaymentRecordedEvent
		paid    float64
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		txn, err := tx.GetTransactionForUpdate(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if in.Amount > txn.Outstanding() {
			return fmt.Errorf("%w: %.2f > %.2f", ErrExceedsOutstanding, in.Amount, txn.Outstanding())
		}

		seq, err := tx.NextSequence(ctx, "PAYOUT", in.PaidAt.Format("2006"))
		if err != nil {
			return err
		}
		payment = Payment{
			Number:        fmt.Sprintf("PAY-OUT-%s-%06d", in.PaidAt.Format("2006"), seq),
			TransactionID: txn.ID,
			Amount:        in.Amount,
			PaidAt:        in.PaidAt,
			Method:        in.Method,
			Reference:     in.Reference,
			Notes:         in.Notes,
			CreatedBy:     actor.ID,
		}
		payment.ID, err = tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}

		paid = txn.PaidAmount + in.Amount
		if err := tx.UpdateTransactionPaid(ctx, txn.ID, paid, DeriveStatus(paid, txn.OriginalAmount)); err != nil {
			return err
		}

		evt = PaymentRecordedEvent{
			TransactionID:   txn.ID,
			PaymentID:       payment.ID,
			PaymentNumber:   payment.Number,
			PurchaseOrderID: txn.PurchaseOrderID,
			SupplierID:      txn.SupplierID,
			Amount:          in.Amount,
			PaidAt:          in.PaidAt,
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}

	if s.poSync != nil && evt.PurchaseOrderID != 0 {
		if err := s.poSync.SyncPaid(ctx, evt.PurchaseOrderID, paid); err != nil {
			s.logger.Error("sync purchase order paid amount",
				slog.Int64("purchase_order", evt.PurchaseOrderID),
				slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "ap.payment.record",
			Entity:   "ap_transaction",
			EntityID: fmt.Sprintf("%d", evt.TransactionID),
			Meta: map[string]any{
				"payment": payment.Number,
				"amount":  payment.Amount,
			},
			At: s.now(),
		})
	}
	if s.hooks != nil {
		// The payment is committed; a ledger failure here is surfaced to the
		// logs and caught by the integrity sweep, not unwound.
		if err := s.hooks.HandleAPPaymentRecorded(ctx, evt); err != nil {
			s.logger.Error("post ap payment ledger batch",
				slog.String("payment", payment.Number),
				slog.Any("error", err))
		}
	}
	return payment, nil
}
