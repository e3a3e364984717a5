package di

import (
	"context"

	"FuelPhases/internal/usecase"
	"FuelPhases/pkg/config"
	applogger "FuelPhases/pkg/logger"
)

// InitializePrecompute builds a standalone precompute run for the CLI: no
// HTTP server, no consumers, no stream. cleanup releases every client.
func InitializePrecompute(cfg *config.Config, l *applogger.Logger) (*usecase.PrecomputeUseCase, func(), error) {
	ch, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	rc, err := ProvideRedisCache(cfg)
	if err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		_ = ch.Close()
		if rc != nil {
			_ = rc.Close()
		}
		return nil, nil, err
	}

	m := ProvideMetrics()
	svc := ProvideCacheService(rc, cfg)
	pipeline := ProvideEventPipeline(producer, m, cfg, l)
	uc := ProvideMarketPhasesUseCase(ProvideObservationStore(ch, cfg, l), ProvideEngine(cfg), ProvideResultCache(svc, cfg), m, l)

	phaseStore := ProvidePhaseStore(ch, cfg)
	if err := phaseStore.Init(context.Background()); err != nil {
		l.Warn("phase store init failed", applogger.Error(err))
	}

	pc := usecase.NewPrecomputeUseCase(uc, phaseStore, pipeline, svc, usecase.PrecomputeConfig{
		OutputDir: cfg.Precompute.OutputDir,
		Timeout:   cfg.Precompute.Timeout,
		LockTTL:   cfg.Cache.LockTTL,
	})
	pc.SetLogger(l)

	cleanup := func() {
		if err := pipeline.Close(); err != nil {
			l.Warn("event publisher close error", applogger.Error(err))
		}
		if err := svc.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
		if err := ch.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return pc, cleanup, nil
}
