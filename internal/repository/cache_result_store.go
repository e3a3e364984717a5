package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	"FuelPhases/pkg/cache"
)

// CacheResultStore implements ResultCache on top of a cache.Service.
type CacheResultStore struct {
	svc cache.Service
	ttl time.Duration
}

var _ domrepo.ResultCache = (*CacheResultStore)(nil)

func NewCacheResultStore(svc cache.Service, ttl time.Duration) *CacheResultStore {
	return &CacheResultStore{svc: svc, ttl: ttl}
}

func (s *CacheResultStore) GetResult(ctx context.Context, key string) (*models.MarketPhases, bool, error) {
	var res models.MarketPhases
	err := s.svc.Get(ctx, key, &res)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached result: %w", err)
	}
	return &res, true, nil
}

func (s *CacheResultStore) SetResult(ctx context.Context, key string, res *models.MarketPhases) error {
	if err := s.svc.Set(ctx, key, res, s.ttl); err != nil {
		return fmt.Errorf("set cached result: %w", err)
	}
	return nil
}

func (s *CacheResultStore) InvalidateFuel(ctx context.Context, fuel string) error {
	if err := s.svc.DeleteByPattern(ctx, domrepo.FuelKeyPattern(fuel)); err != nil {
		return fmt.Errorf("invalidate %s: %w", fuel, err)
	}
	return nil
}
