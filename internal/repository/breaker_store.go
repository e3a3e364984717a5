package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	applogger "FuelPhases/pkg/logger"

	"github.com/sony/gobreaker"
)

// ErrStoreUnavailable is returned while the breaker is open.
var ErrStoreUnavailable = errors.New("observation store unavailable")

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // trial requests allowed while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open-state duration before half-open
	FailureThreshold uint32        // consecutive failures that trip the breaker
}

// BreakerObservationStore guards an ObservationStore with a circuit breaker.
// Cancellations and malformed input do not count as failures.
type BreakerObservationStore struct {
	next domrepo.ObservationStore
	cb   *gobreaker.CircuitBreaker
	l    *applogger.Logger
}

var _ domrepo.ObservationStore = (*BreakerObservationStore)(nil)

func NewBreakerObservationStore(next domrepo.ObservationStore, cfg BreakerConfig, l *applogger.Logger) *BreakerObservationStore {
	if cfg.Name == "" {
		cfg.Name = "observation-store"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	s := &BreakerObservationStore{next: next, l: l}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, models.ErrMalformedInput) ||
				errors.Is(err, domrepo.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if s.l != nil {
				s.l.Warn("circuit breaker state change",
					applogger.String("breaker", name),
					applogger.String("from", from.String()),
					applogger.String("to", to.String()),
				)
			}
		},
	})
	return s
}

func (s *BreakerObservationStore) LoadObservations(ctx context.Context, q domrepo.ObservationQuery) (*models.Table, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.LoadObservations(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return res.(*models.Table), nil
}

// State returns the breaker state name.
func (s *BreakerObservationStore) State() string {
	return s.cb.State().String()
}
