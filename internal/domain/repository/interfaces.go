package repository

import (
	"context"
	"strings"

	"FuelPhases/internal/domain/models"
)

// ResultKeyPrefix prefixes every cached engine result.
const ResultKeyPrefix = "market_phases"

// ResultKey builds market_phases:<fuel>:<region|all>:<from>:<to>. Empty dates render as "-".
func ResultKey(fuel, region, from, to string) string {
	if region == "" {
		region = "all"
	}
	if from == "" {
		from = "-"
	}
	if to == "" {
		to = "-"
	}
	return strings.Join([]string{ResultKeyPrefix, fuel, region, from, to}, ":")
}

// FuelKeyPattern matches every cached result of one fuel.
func FuelKeyPattern(fuel string) string {
	return ResultKeyPrefix + ":" + fuel + ":*"
}

// PhaseStore persists computed intervals.
type PhaseStore interface {
	Init(ctx context.Context) error // ensure tables
	StoreBatch(ctx context.Context, fuel, region string, phases []models.PhaseInterval) error
	Query(ctx context.Context, fuel, region string) ([]models.PhaseInterval, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// EventPublisher announces fresh computations.
type EventPublisher interface {
	PublishComputed(ctx context.Context, ev *models.PhaseComputed) error
	Close() error
}

// ResultCache stores engine results by key.
type ResultCache interface {
	GetResult(ctx context.Context, key string) (*models.MarketPhases, bool, error)
	SetResult(ctx context.Context, key string, res *models.MarketPhases) error
	InvalidateFuel(ctx context.Context, fuel string) error
}

type Metrics interface {
	RecordComputation(fuel, outcome string)
	RecordPhases(fuel string, phase models.Phase, n int)
	RecordCacheResult(hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
