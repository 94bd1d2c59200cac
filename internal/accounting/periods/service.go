package periods

import (
	"context"
	"time"

	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.FindOpenPeriodByDate(ctx, date)
}

func (s *Service) EnsureOpenPeriod(ctx context.Context, date time.Time) (Period, error) {
	return s.repo.EnsureOpenPeriod(ctx, date)
}

func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

func (s *Service) Close(ctx context.Context, id int64) error {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return shared.ErrActorRequired
	}
	return s.repo.Close(ctx, id, actor.ID)
}
