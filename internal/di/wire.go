//go:build wireinject
// +build wireinject

package di

import (
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegisterer,
		ProvideGatherer,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Data sources and models
		ProvideUniverse,
		ProvideNewsProvider,
		ProvidePriceProvider,
		ProvideSentimentScorer,
		ProvidePredictor,
		ProvideReportStore,
		ProvideEventPublisher,

		// Use cases
		usecase.NewCorrelationBuilder,
		ProvideOrchestrator,
		ProvideRegistry,
		ProvideAnalysisJobs,
		ProvideProgressStreamer,
		ProvideRateLimiter,
		ProvideJanitor,
		ProvideScheduler,
		ProvideKafkaRequestsHandler,

		// HTTP
		ProvideHTTPHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil
}
