//go:build wireinject
// +build wireinject

package di

import (
	"StockResearch/internal/domain/repository"
	"StockResearch/pkg/config"
	"StockResearch/pkg/metrics"
	"StockResearch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),

		// Infrastructure clients
		ProvideCacheStore,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStore,
		ProvideResultPublisher,

		// Use cases
		ProvideIndicatorCache,
		ProvideOrchestrator,
		ProvideAnalysisRequestHandler,
		ProvideScheduler,

		// Transport
		ProvideRateLimiter,
		ProvideAnalysisHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
