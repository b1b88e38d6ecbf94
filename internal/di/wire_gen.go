// Hand-maintained injector mirroring the provider graph in wire.go.
// Running wire in this package replaces it with generated output.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"MarketPulse/internal/usecase"
	"MarketPulse/pkg/config"
	"MarketPulse/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	registerer := ProvideRegisterer()
	gatherer := ProvideGatherer()
	metrics := ProvideMetrics(cfg, registerer)
	redisCache := ProvideRedisCache(cfg, logger)
	bytesCache := ProvideCache(cfg, redisCache)
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	consumer, err := ProvideKafkaConsumer(cfg, logger)
	if err != nil {
		return nil, err
	}
	tickerUniverse := ProvideUniverse(cfg, bytesCache, logger)
	newsProvider := ProvideNewsProvider(cfg, bytesCache, logger)
	priceProvider, err := ProvidePriceProvider(cfg, client, logger)
	if err != nil {
		return nil, err
	}
	sentimentScorer := ProvideSentimentScorer(cfg)
	pricePredictor := ProvidePredictor(cfg, logger)
	reportStore := ProvideReportStore(cfg)
	eventPublisher := ProvideEventPublisher(cfg, producer)
	correlationBuilder := usecase.NewCorrelationBuilder(sentimentScorer)
	analysisOrchestrator := ProvideOrchestrator(cfg, tickerUniverse, newsProvider, priceProvider, correlationBuilder, pricePredictor, reportStore, eventPublisher, metrics, logger)
	registry := ProvideRegistry(cfg)
	analysisJobs := ProvideAnalysisJobs(registry, analysisOrchestrator, metrics, logger)
	progressStreamer := ProvideProgressStreamer(cfg, registry, logger)
	limiter := ProvideRateLimiter(cfg)
	janitor := ProvideJanitor(cfg, registry, limiter, logger)
	analysisScheduler := ProvideScheduler(cfg, analysisJobs, progressStreamer, logger)
	kafkaAnalysisRequestHandler := ProvideKafkaRequestsHandler(cfg, analysisJobs, progressStreamer, logger)
	handler := ProvideHTTPHandler(logger, analysisJobs, progressStreamer, reportStore, limiter)
	httpServer := ProvideHTTPServer(cfg, handler, registerer, gatherer, logger)
	app := ProvideApp(cfg, logger, httpServer, analysisJobs, janitor, analysisScheduler, consumer, kafkaAnalysisRequestHandler, producer, client, redisCache)
	return app, nil
}
