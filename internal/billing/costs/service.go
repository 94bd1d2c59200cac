package costs

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

func (s *Service) Get(ctx context.Context, id int64) (Cost, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return Cost{}, fmt.Errorf("%w: cost %d", httpx.ErrNotFound, id)
		}
		return Cost{}, err
	}
	return c, nil
}

func (s *Service) ListByQuotation(ctx context.Context, quotationID int64) ([]Cost, error) {
	return s.repo.ListByQuotation(ctx, quotationID)
}

func (s *Service) Approve(ctx context.Context, id int64, actor shared.Actor) (Cost, error) {
	return s.transition(ctx, id, CostStatusApproved, "cost.approve", actor)
}

func (s *Service) MarkPaid(ctx context.Context, id int64, actor shared.Actor) (Cost, error) {
	return s.transition(ctx, id, CostStatusPaid, "cost.mark_paid", actor)
}

func (s *Service) transition(ctx context.Context, id int64, to CostStatus, action string, actor shared.Actor) (Cost, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return Cost{}, err
	}
	if !CanTransition(c.Status, to) {
		return Cost{}, fmt.Errorf("%w: cost %s cannot move from %s to %s", httpx.ErrConflict, c.Number, c.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return Cost{}, err
	}
	c.Status = to
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   action,
			Entity:   "cost",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"number": c.Number},
		})
	}
	return c, nil
}
