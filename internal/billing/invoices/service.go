package invoices

import (
	"context"
	"fmt"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetByQuotation(ctx context.Context, quotationID int64) (*Invoice, error) {
	inv, err := s.repo.GetByQuotation(ctx, quotationID)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("%w: no invoice for quotation %d", httpx.ErrNotFound, quotationID)
		}
		return nil, err
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Cancel voids an invoice that has not been fully paid.
func (s *Service) Cancel(ctx context.Context, id int64, actor shared.Actor) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status == InvoiceStatusPaid {
		return fmt.Errorf("%w: paid invoice cannot be cancelled", httpx.ErrConflict)
	}
	if inv.Status == InvoiceStatusCancelled {
		return fmt.Errorf("%w: invoice already cancelled", httpx.ErrConflict)
	}
	if err := s.repo.Cancel(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "invoice.cancel",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"number": inv.Number},
		})
	}
	return nil
}
