package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigblink-erp/bigblink-erp/internal/billing/costs"
	"github.com/bigblink-erp/bigblink-erp/internal/billing/invoices"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/customers"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

var (
	ErrInvalidStatus = errors.New("invalid status transition")
	ErrNoLines       = errors.New("quotation has no lines")
	ErrNoInvoice     = errors.New("approved quotation has no linked invoice")
)

const defaultPaymentTermsDays = 30

type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo         Repository
	customerRepo customers.Repository
	approvals    ApprovalPort
	audit        AuditPort
	hooks        IntegrationHandler
	logger       *slog.Logger
	now          func() time.Time
}

func NewService(repo Repository, customerRepo customers.Repository, approvals ApprovalPort, audit AuditPort, hooks IntegrationHandler, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		customerRepo: customerRepo,
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

// RefID derives the stable approval-history reference for a quotation.
func RefID(quotationID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("QUOTE:%d", quotationID)))
}

func computeLines(reqs []CreateQuotationLineReq) (lines []QuotationLine, subtotal float64) {
	for i, lr := range reqs {
		amount := lr.Quantity * lr.UnitPrice
		order := lr.LineOrder
		if order == 0 {
			order = i + 1
		}
		lines = append(lines, QuotationLine{
			Description: lr.Description,
			Quantity:    lr.Quantity,
			UnitPrice:   lr.UnitPrice,
			Amount:      amount,
			LineOrder:   order,
		})
		subtotal += amount
	}
	return lines, subtotal
}

func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, actor shared.Actor) (*Quotation, error) {
	if req.ValidUntil.Before(req.QuoteDate) {
		return nil, fmt.Errorf("%w: valid_until must be after quote_date", httpx.ErrValidation)
	}
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line required", httpx.ErrValidation)
	}
	if _, err := s.customerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("%w: customer %d", httpx.ErrValidation, req.CustomerID)
	}

	lines, subtotal := computeLines(req.Lines)
	taxAmount := subtotal * req.TaxRate
	quotation := Quotation{
		CustomerID:  req.CustomerID,
		QuoteDate:   req.QuoteDate,
		ValidUntil:  req.ValidUntil,
		Status:      QuotationStatusDraft,
		Currency:    req.Currency,
		Subtotal:    subtotal,
		TaxRate:     req.TaxRate,
		TaxAmount:   taxAmount,
		TotalAmount: subtotal + taxAmount,
		Revision:    1,
		Notes:       req.Notes,
		CreatedBy:   actor.ID,
	}

	var quotationID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextSequence(ctx, "QUOTE", req.QuoteDate.Format("0601"))
		if err != nil {
			return fmt.Errorf("allocate quotation number: %w", err)
		}
		quotation.Number = fmt.Sprintf("BIG-%s-%04d", req.QuoteDate.Format("06-01"), seq)
		quotationID, err = tx.InsertQuotation(ctx, quotation)
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		for _, line := range lines {
			line.QuotationID = quotationID
			if _, err := tx.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert quotation line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, quotationID)
}

// Update edits a quotation in place. DRAFT edits stay DRAFT; editing an
// APPROVED quotation moves it to PENDING_REVIEW in the same transaction so
// the downstream documents are flagged for re-approval.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest, actor shared.Actor) (*Quotation, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetQuotationForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, id)
		}
		switch existing.Status {
		case QuotationStatusDraft, QuotationStatusPendingReview:
		case QuotationStatusApproved:
			if !CanTransition(existing.Status, QuotationStatusPendingReview) {
				return fmt.Errorf("%w: %s", httpx.ErrConflict, ErrInvalidStatus)
			}
			if err := tx.UpdateStatus(ctx, id, QuotationStatusPendingReview, existing.Revision); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: quotation in %s cannot be edited", httpx.ErrConflict, existing.Status)
		}

		updated := existing
		if req.QuoteDate != nil {
			updated.QuoteDate = *req.QuoteDate
		}
		if req.ValidUntil != nil {
			updated.ValidUntil = *req.ValidUntil
		}
		if req.TaxRate != nil {
			updated.TaxRate = *req.TaxRate
		}
		if req.Notes != nil {
			updated.Notes = req.Notes
		}
		if req.Lines != nil {
			lines, subtotal := computeLines(*req.Lines)
			updated.Subtotal = subtotal
			updated.TaxAmount = subtotal * updated.TaxRate
			updated.TotalAmount = updated.Subtotal + updated.TaxAmount
			if err := tx.DeleteLines(ctx, id); err != nil {
				return err
			}
			for _, line := range lines {
				line.QuotationID = id
				if _, err := tx.InsertLine(ctx, line); err != nil {
					return err
				}
			}
		} else if req.TaxRate != nil {
			updated.TaxAmount = updated.Subtotal * updated.TaxRate
			updated.TotalAmount = updated.Subtotal + updated.TaxAmount
		}
		return tx.UpdateHeader(ctx, id, updated)
	})
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "quotation.update",
			Entity:   "quotation",
			EntityID: fmt.Sprintf("%d", id),
			At:       s.now(),
		})
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Send(ctx context.Context, id int64, actor shared.Actor) (*Quotation, error) {
	return s.transition(ctx, id, QuotationStatusSent, shared.ApprovalSubmit, "", actor)
}

func (s *Service) Reject(ctx context.Context, id int64, reason string, actor shared.Actor) (*Quotation, error) {
	return s.transition(ctx, id, QuotationStatusRejected, shared.ApprovalReject, reason, actor)
}

func (s *Service) Expire(ctx context.Context, id int64, actor shared.Actor) (*Quotation, error) {
	return s.transition(ctx, id, QuotationStatusExpired, "", "", actor)
}

func (s *Service) transition(ctx context.Context, id int64, to QuotationStatus, approvalAction shared.ApprovalAction, note string, actor shared.Actor) (*Quotation, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetQuotationForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, id)
		}
		if !CanTransition(existing.Status, to) {
			return fmt.Errorf("%w: quotation %s cannot move from %s to %s", httpx.ErrConflict, existing.Number, existing.Status, to)
		}
		return tx.UpdateStatus(ctx, id, to, existing.Revision)
	})
	if err != nil {
		return nil, err
	}
	if approvalAction != "" && s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "QUOTATION",
			RefID:   RefID(id),
			ActorID: actor.ID,
			Action:  approvalAction,
			Note:    note,
			At:      s.now(),
		})
	}
	return s.repo.Get(ctx, id)
}

// Approve runs the approval orchestration. The first approval generates the
// invoice, the vendor cost rows and the AR transaction; a re-approval
// (PENDING_REVIEW) regenerates them from the current quotation lines. All
// document writes share one transaction; the ledger batch is posted after
// commit with a revision-scoped source ID.
func (s *Service) Approve(ctx context.Context, id int64, actor shared.Actor) (*Quotation, error) {
	approvedAt := s.now()
	var evt QuotationApprovedEvent
	var reapproval bool
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.GetQuotationForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err, id)
		}
		switch q.Status {
		case QuotationStatusDraft, QuotationStatusSent:
			reapproval = false
		case QuotationStatusPendingReview:
			reapproval = true
		default:
			return fmt.Errorf("%w: quotation %s cannot be approved from %s", httpx.ErrConflict, q.Number, q.Status)
		}
		lines, err := tx.GetLines(ctx, id)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: %s", httpx.ErrValidation, ErrNoLines)
		}

		revision := q.Revision
		if reapproval {
			revision++
		}
		if err := tx.UpdateStatus(ctx, id, QuotationStatusApproved, revision); err != nil {
			return err
		}

		var invoiceID int64
		var prevInvoiceTotal, prevCostTotal float64
		invoiceNumber := "INV-" + q.Number
		dueAt := approvedAt.AddDate(0, 0, s.paymentTerms(ctx, q.CustomerID))
		if reapproval {
			inv, err := tx.GetInvoiceByQuotation(ctx, id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: quotation %s", ErrNoInvoice, q.Number)
				}
				return err
			}
			invoiceID = inv.ID
			invoiceNumber = inv.Number
			prevInvoiceTotal = inv.TotalAmount
			prevCostTotal, err = tx.SumCosts(ctx, id)
			if err != nil {
				return err
			}
			if err := tx.UpdateInvoiceTotals(ctx, inv.ID, q.Subtotal, q.TaxRate, q.TaxAmount, q.TotalAmount); err != nil {
				return err
			}
			if err := tx.DeleteInvoiceLines(ctx, inv.ID); err != nil {
				return err
			}
			if err := tx.UpdateARTransactionOriginal(ctx, inv.ID, q.TotalAmount); err != nil {
				return err
			}
			if err := tx.DeleteCosts(ctx, id); err != nil {
				return err
			}
		} else {
			invoiceID, err = tx.InsertInvoice(ctx, invoices.Invoice{
				Number:      invoiceNumber,
				QuotationID: &q.ID,
				CustomerID:  q.CustomerID,
				Currency:    q.Currency,
				Subtotal:    q.Subtotal,
				TaxRate:     q.TaxRate,
				TaxAmount:   q.TaxAmount,
				TotalAmount: q.TotalAmount,
				Status:      invoices.InvoiceStatusUnpaid,
				DueAt:       dueAt,
			})
			if err != nil {
				return fmt.Errorf("create invoice: %w", err)
			}
			arSeq, err := tx.NextSequence(ctx, "AR", approvedAt.Format("2006"))
			if err != nil {
				return fmt.Errorf("allocate ar number: %w", err)
			}
			arNumber := fmt.Sprintf("AR-%s-%06d", approvedAt.Format("2006"), arSeq)
			if _, err := tx.InsertARTransaction(ctx, invoiceID, q.CustomerID, arNumber, q.TotalAmount, dueAt); err != nil {
				return fmt.Errorf("create ar transaction: %w", err)
			}
		}

		var costTotal float64
		for i, line := range lines {
			if err := tx.InsertInvoiceLine(ctx, invoices.InvoiceLine{
				InvoiceID:   invoiceID,
				Description: line.Description,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				Amount:      line.Amount,
				LineOrder:   line.LineOrder,
			}); err != nil {
				return err
			}
			costAmount := line.Amount * costs.CostRatio
			costNumber := fmt.Sprintf("COST-%s-%02d", q.Number, i+1)
			if err := tx.InsertCost(ctx, id, costNumber, line.Description, costAmount); err != nil {
				return err
			}
			costTotal += costAmount
		}

		evt = QuotationApprovedEvent{
			QuotationID:      id,
			Number:           q.Number,
			Revision:         revision,
			CustomerID:       q.CustomerID,
			ApprovedAt:       approvedAt,
			InvoiceID:        invoiceID,
			InvoiceNumber:    invoiceNumber,
			InvoiceTotal:     q.TotalAmount,
			CostTotal:        costTotal,
			PrevInvoiceTotal: prevInvoiceTotal,
			PrevCostTotal:    prevCostTotal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := shared.ApprovalApprove
	if reapproval {
		action = shared.ApprovalReapprove
	}
	if s.approvals != nil {
		_ = s.approvals.Record(ctx, shared.ApprovalLog{
			Module:  "QUOTATION",
			RefID:   RefID(id),
			ActorID: actor.ID,
			Action:  action,
			At:      approvedAt,
		})
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "quotation.approve",
			Entity:   "quotation",
			EntityID: fmt.Sprintf("%d", id),
			Meta: map[string]any{
				"number":   evt.Number,
				"revision": evt.Revision,
				"invoice":  evt.InvoiceNumber,
			},
			At: approvedAt,
		})
	}
	if s.hooks != nil {
		// The documents are committed; a ledger failure here is surfaced to
		// the logs and caught by the integrity sweep, not unwound.
		if err := s.hooks.HandleQuotationApproved(ctx, evt); err != nil {
			s.logger.Error("post approval ledger batch",
				slog.String("quotation", evt.Number),
				slog.Int("revision", evt.Revision),
				slog.Any("error", err))
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) paymentTerms(ctx context.Context, customerID int64) int {
	customer, err := s.customerRepo.Get(ctx, customerID)
	if err != nil || customer.PaymentTermsDays <= 0 {
		return defaultPaymentTermsDays
	}
	return customer.PaymentTermsDays
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, id)
	}
	return q, nil
}

func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// History lists approval records for a quotation.
func (s *Service) History(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	if s.approvals == nil {
		return nil, nil
	}
	return s.approvals.List(ctx, "QUOTATION", RefID(id))
}

func mapRepoErr(err error, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: quotation %d", httpx.ErrNotFound, id)
	}
	return err
}
