//go:build wireinject
// +build wireinject

package di

import (
	"FuelPhases/pkg/config"
	"FuelPhases/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideTracing,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideObservationStore,
		ProvidePhaseStore,
		ProvideResultCache,
		ProvideEventPipeline,

		// Domain
		ProvideEngine,

		// Use cases
		ProvideMarketPhasesUseCase,
		ProvidePrecomputeUseCase,
		ProvideObservationsHandler,
		ProvideQueue,

		// Transport
		ProvideHub,
		ProvideRateLimiter,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
