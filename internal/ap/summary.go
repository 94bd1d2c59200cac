package ap

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/bigblink-erp/bigblink-erp/internal/finance/aging"
)

const (
	agingCacheKey = "ap:aging:summary"
	agingCacheTTL = 60 * time.Second
)

// AgingService serves the payables aging summary, cached the same way as the
// receivables side.
type AgingService struct {
	repo   RepositoryPort
	cache  *redis.Client
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewAgingService(repo RepositoryPort, cache *redis.Client, logger *slog.Logger) *AgingService {
	return &AgingService{
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

func (s *AgingService) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *AgingService) Summary(ctx context.Context) (aging.Summary, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, agingCacheKey).Bytes()
		if err == nil {
			var cached aging.Summary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("ap aging cache read", slog.Any("error", err))
		}
	}

	v, err, _ := s.group.Do(agingCacheKey, func() (any, error) {
		summary, err := s.build(ctx)
		if err != nil {
			return aging.Summary{}, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(summary); err == nil {
				if err := s.cache.Set(ctx, agingCacheKey, raw, agingCacheTTL).Err(); err != nil {
					s.logger.Warn("ap aging cache write", slog.Any("error", err))
				}
			}
		}
		return summary, nil
	})
	if err != nil {
		return aging.Summary{}, err
	}
	return v.(aging.Summary), nil
}

func (s *AgingService) build(ctx context.Context) (aging.Summary, error) {
	open, err := s.repo.ListOutstanding(ctx)
	if err != nil {
		return aging.Summary{}, err
	}
	asOf := s.now()
	var summary aging.Summary
	for _, txn := range open {
		summary.Add(txn.DueAt, asOf, txn.Outstanding())
	}
	return summary, nil
}

// Invalidate drops the cached summary, called after a payment lands.
func (s *AgingService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, agingCacheKey).Err(); err != nil {
		s.logger.Warn("ap aging cache invalidate", slog.Any("error", err))
	}
}
