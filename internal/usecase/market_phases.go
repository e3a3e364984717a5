package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FuelPhases/internal/domain/models"
	domrepo "FuelPhases/internal/domain/repository"
	domsvc "FuelPhases/internal/domain/service"
	applogger "FuelPhases/pkg/logger"
	"FuelPhases/pkg/tracing"
	"FuelPhases/pkg/util"

	"go.opentelemetry.io/otel/attribute"
)

// Query selects the input of one computation. Zero dates leave the range open;
// an empty Region means Germany-wide.
type Query struct {
	Fuel   string
	Region string
	From   time.Time
	To     time.Time
}

// CacheKey identifies the result of q in the result cache.
func (q Query) CacheKey() string {
	return domrepo.ResultKey(q.Fuel, q.Region, util.FormatDate(q.From), util.FormatDate(q.To))
}

// MarketPhasesUseCase serves engine results, reading through the result cache.
type MarketPhasesUseCase struct {
	store   domrepo.ObservationStore
	engine  domsvc.PhaseEngine
	cache   domrepo.ResultCache
	metrics domrepo.Metrics
	l       *applogger.Logger
}

// NewMarketPhasesUseCase wires the use case. cache and metrics may be nil.
func NewMarketPhasesUseCase(store domrepo.ObservationStore, engine domsvc.PhaseEngine, cache domrepo.ResultCache, metrics domrepo.Metrics) *MarketPhasesUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &MarketPhasesUseCase{store: store, engine: engine, cache: cache, metrics: metrics}
}

// SetLogger injects a structured logger.
func (u *MarketPhasesUseCase) SetLogger(l *applogger.Logger) { u.l = l }

// Get returns the cached result for q or computes and caches it.
func (u *MarketPhasesUseCase) Get(ctx context.Context, q Query) (*models.MarketPhases, error) {
	ctx, span := tracing.Start(ctx, "market_phases.get", queryAttrs(q)...)
	res, err := u.get(ctx, q)
	tracing.End(span, err)
	return res, err
}

// Refresh recomputes q, bypassing the cached copy, and caches the fresh result.
func (u *MarketPhasesUseCase) Refresh(ctx context.Context, q Query) (*models.MarketPhases, error) {
	ctx, span := tracing.Start(ctx, "market_phases.refresh", queryAttrs(q)...)
	res, err := u.compute(ctx, q)
	tracing.End(span, err)
	return res, err
}

// Invalidate drops every cached result of fuel.
func (u *MarketPhasesUseCase) Invalidate(ctx context.Context, fuel string) error {
	if u.cache == nil {
		return nil
	}
	if err := u.cache.InvalidateFuel(ctx, fuel); err != nil {
		u.metrics.RecordError("cache_invalidate")
		return err
	}
	return nil
}

func (u *MarketPhasesUseCase) get(ctx context.Context, q Query) (*models.MarketPhases, error) {
	if u.cache != nil {
		res, ok, err := u.cache.GetResult(ctx, q.CacheKey())
		switch {
		case err != nil:
			u.metrics.RecordError("cache_get")
			u.warn("result cache read failed", q, err)
		case ok:
			u.metrics.RecordCacheResult(true)
			return res, nil
		}
		u.metrics.RecordCacheResult(false)
	}
	return u.compute(ctx, q)
}

func (u *MarketPhasesUseCase) compute(ctx context.Context, q Query) (*models.MarketPhases, error) {
	tbl, err := u.store.LoadObservations(ctx, domrepo.ObservationQuery{
		Fuel:   q.Fuel,
		Region: q.Region,
		From:   q.From,
		To:     q.To,
	})
	if err != nil {
		if errors.Is(err, models.ErrMalformedInput) {
			u.metrics.RecordComputation(q.Fuel, "malformed")
			return nil, err
		}
		u.metrics.RecordError("store_load")
		return nil, fmt.Errorf("load observations: %w", err)
	}

	start := time.Now()
	res, err := u.engine.Calculate(tbl, q.Fuel, q.Region)
	u.metrics.RecordLatency("engine_calculate", time.Since(start).Seconds())
	if err != nil {
		u.metrics.RecordComputation(q.Fuel, "malformed")
		return nil, err
	}

	if res.Meta.Error != "" {
		u.metrics.RecordComputation(q.Fuel, "insufficient")
	} else {
		u.metrics.RecordComputation(q.Fuel, "ok")
	}
	counts := make(map[models.Phase]int)
	for _, p := range res.Phases {
		counts[p.Phase]++
	}
	for phase, n := range counts {
		u.metrics.RecordPhases(q.Fuel, phase, n)
	}

	if u.cache != nil {
		if err := u.cache.SetResult(ctx, q.CacheKey(), res); err != nil {
			u.metrics.RecordError("cache_set")
			u.warn("result cache write failed", q, err)
		}
	}

	if u.l != nil {
		u.l.Debug("market phases computed",
			applogger.String("fuel", q.Fuel),
			applogger.String("region", q.Region),
			applogger.Int("rows", len(tbl.Rows)),
			applogger.Int("phases", len(res.Phases)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return res, nil
}

func (u *MarketPhasesUseCase) warn(msg string, q Query, err error) {
	if u.l != nil {
		u.l.Warn(msg,
			applogger.String("key", q.CacheKey()),
			applogger.Error(err),
		)
	}
}

func queryAttrs(q Query) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("fuel", q.Fuel),
		attribute.String("region", q.Region),
		attribute.String("from", util.FormatDate(q.From)),
		attribute.String("to", util.FormatDate(q.To)),
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordComputation(string, string)       {}
func (nopMetrics) RecordPhases(string, models.Phase, int) {}
func (nopMetrics) RecordCacheResult(bool)                 {}
func (nopMetrics) RecordError(string)                     {}
func (nopMetrics) RecordLatency(string, float64)          {}
