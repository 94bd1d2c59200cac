package procurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigblink-erp/bigblink-erp/internal/masterdata/suppliers"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

var (
	ErrInvalidStatus = errors.New("procurement: invalid status transition")
	ErrNoLines       = errors.New("procurement: purchase order has no lines")
)

const defaultPaymentTermsDays = 30

type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// RefID is the stable approval-history reference for a purchase order.
func RefID(purchaseOrderID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("PO:%d", purchaseOrderID)))
}

type Service struct {
	repo         Repository
	supplierRepo suppliers.Repository
	approvals    ApprovalPort
	audit        AuditPort
	hooks        IntegrationHandler
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(repo Repository, supplierRepo suppliers.Repository, approvals ApprovalPort, audit AuditPort, hooks IntegrationHandler, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		supplierRepo: supplierRepo,
		approvals:    approvals,
		audit:        audit,
		hooks:        hooks,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetWithLines(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListPORequest) ([]PurchaseOrder, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Create(ctx context.Context, req CreatePORequest, actor shared.Actor) (PurchaseOrder, error) {
	if _, err := s.supplierRepo.Get(ctx, req.SupplierID); err != nil {
		if errors.Is(err, suppliers.ErrNotFound) {
			return PurchaseOrder{}, fmt.Errorf("%w: supplier %d", httpx.ErrValidation, req.SupplierID)
		}
		return PurchaseOrder{}, err
	}

	lines := make([]Line, 0, len(req.Lines))
	var total float64
	for i, in := range req.Lines {
		amount := in.Quantity * in.UnitPrice
		total += amount
		lines = append(lines, Line{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
			LineOrder:   i + 1,
		})
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year := req.OrderedAt.Format("2006")
		seq, err := tx.NextSequence(ctx, "PO", year)
		if err != nil {
			return err
		}
		po := PurchaseOrder{
			Number:      fmt.Sprintf("PO-%s-%04d", year, seq),
			SupplierID:  req.SupplierID,
			Description: req.Description,
			Currency:    req.Currency,
			TotalAmount: total,
			Status:      StatusDraft,
			OrderedAt:   req.OrderedAt,
			CreatedBy:   actor.ID,
		}
		id, err = tx.InsertPurchaseOrder(ctx, po)
		if err != nil {
			return err
		}
		for i := range lines {
			lines[i].PurchaseOrderID = id
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	return s.repo.GetWithLines(ctx, id)
}

// Approve moves a draft order to APPROVED and opens the payable for it, both
// in one transaction.
func (s *Service) Approve(ctx context.Context, id int64, actor shared.Actor) (PurchaseOrder, error) {
	approvedAt := s.now()
	var evt ApprovedEvent
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(po.Status, StatusApproved) {
			return fmt.Errorf("%w: %s -> APPROVED: %s", httpx.ErrConflict, po.Status, ErrInvalidStatus)
		}
		lines, err := tx.GetLines(ctx, id)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: %s", httpx.ErrValidation, ErrNoLines)
		}
		if err := tx.UpdateStatus(ctx, id, StatusApproved, &actor.ID, &approvedAt); err != nil {
			return err
		}

		year := approvedAt.Format("2006")
		seq, err := tx.NextSequence(ctx, "AP", year)
		if err != nil {
			return err
		}
		apNumber := fmt.Sprintf("AP-%s-%06d", year, seq)
		dueAt := approvedAt.AddDate(0, 0, s.paymentTerms(ctx, po.SupplierID))
		apID, err := tx.InsertAPTransaction(ctx, apNumber, po, dueAt)
		if err != nil {
			return err
		}

		evt = ApprovedEvent{
			PurchaseOrderID: po.ID,
			Number:          po.Number,
			SupplierID:      po.SupplierID,
			APTransactionID: apID,
			APNumber:        apNumber,
			Total:           po.TotalAmount,
			ApprovedAt:      approvedAt,
		}
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "PO",
			RefID:   RefID(id),
			ActorID: actor.ID,
			Action:  shared.ApprovalApprove,
			At:      approvedAt,
		})
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "purchase_order.approve",
			Entity:   "purchase_order",
			EntityID: fmt.Sprintf("%d", id),
			Meta: map[string]any{
				"number":  evt.Number,
				"payable": evt.APNumber,
			},
			At: approvedAt,
		})
	}
	if s.hooks != nil {
		// The documents are committed; a ledger failure here is surfaced to
		// the logs and caught by the integrity sweep, not unwound.
		if err := s.hooks.HandlePOApproved(ctx, evt); err != nil {
			s.logger.Error("post po approval ledger batch",
				slog.String("purchase_order", evt.Number),
				slog.Any("error", err))
		}
	}
	return s.repo.GetWithLines(ctx, id)
}

func (s *Service) Cancel(ctx context.Context, id int64, actor shared.Actor) (PurchaseOrder, error) {
	return s.transition(ctx, id, StatusCancelled, "purchase_order.cancel", actor)
}

func (s *Service) Close(ctx context.Context, id int64, actor shared.Actor) (PurchaseOrder, error) {
	return s.transition(ctx, id, StatusClosed, "purchase_order.close", actor)
}

func (s *Service) transition(ctx context.Context, id int64, to Status, action string, actor shared.Actor) (PurchaseOrder, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !CanTransition(po.Status, to) {
			return fmt.Errorf("%w: %s -> %s: %s", httpx.ErrConflict, po.Status, to, ErrInvalidStatus)
		}
		if to == StatusCancelled && po.PaidAmount > 0 {
			return fmt.Errorf("%w: purchase order has recorded payments", httpx.ErrConflict)
		}
		return tx.UpdateStatus(ctx, id, to, nil, nil)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   action,
			Entity:   "purchase_order",
			EntityID: fmt.Sprintf("%d", id),
			At:       s.now(),
		})
	}
	return s.repo.GetWithLines(ctx, id)
}

func (s *Service) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.approvals.List(ctx, "PO", RefID(id))
}

func (s *Service) paymentTerms(ctx context.Context, supplierID int64) int {
	supplier, err := s.supplierRepo.Get(ctx, supplierID)
	if err != nil || supplier.PaymentTermsDays <= 0 {
		return defaultPaymentTermsDays
	}
	return supplier.PaymentTermsDays
}
