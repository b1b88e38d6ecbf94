package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	domrepo "MarketPulse/internal/domain/repository"
	domsvc "MarketPulse/internal/domain/service"
	"MarketPulse/internal/handler/api"
	internalrepo "MarketPulse/internal/repository"
	icache "MarketPulse/internal/service/cache"
	svcmetrics "MarketPulse/internal/service/metrics"
	"MarketPulse/internal/service/progress"
	"MarketPulse/internal/service/ratelimit"
	"MarketPulse/internal/services/analytics"
	"MarketPulse/internal/services/sentiment"
	"MarketPulse/internal/usecase"
	pkgch "MarketPulse/pkg/clickhouse"
	"MarketPulse/pkg/config"
	xhttp "MarketPulse/pkg/http"
	pkgkafka "MarketPulse/pkg/kafka"
	applogger "MarketPulse/pkg/logger"
	pkgmetrics "MarketPulse/pkg/metrics"
	"MarketPulse/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// maxRequestBytes caps analysis request payloads read from Kafka.
const maxRequestBytes = 64 << 10

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegisterer returns the process-wide Prometheus registerer. The Kafka
// client metrics register there too, so /metrics serves a single registry.
func ProvideRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

func ProvideGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}

// ProvideMetrics creates the job metrics recorder.
func ProvideMetrics(cfg *config.Config, reg prometheus.Registerer) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return pkgmetrics.Noop{}
	}
	svcmetrics.Register(reg)
	return pkgmetrics.New(reg)
}

// ProvideRedisCache connects the shared cache layer. It returns nil when
// Redis is disabled or unreachable; callers then run on the local layer only.
func ProvideRedisCache(cfg *config.Config, l *applogger.Logger) *icache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unavailable, using in-process cache only", applogger.String("addr", cfg.Redis.Addr), applogger.Error(err))
		_ = rc.Close()
		return nil
	}
	l.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	return rc
}

// ProvideCache layers an in-process TTL cache over Redis when present.
func ProvideCache(cfg *config.Config, rc *icache.RedisCache) icache.BytesCache {
	var shared icache.BytesCache
	if rc != nil {
		shared = rc
	}
	return icache.NewLayered(icache.NewTTLCache(), shared, cfg.News.CacheTTL)
}

// ProvideClickHouseClient creates a ClickHouse client when enabled and
// ensures the candle table exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	stmts, err := internalrepo.CandleSchema(cfg.ClickHouse.Database, cfg.Prices.ClickHouseTable)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher forwards terminal events to Kafka, or nothing.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.EventPublisher {
	if producer == nil || cfg.Kafka.EventsTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideKafkaConsumer creates the analysis request consumer when a
// requests topic is configured.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RequestsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "kafka_consumer"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.NewLoggingHook(l, maxRequestBytes),
	))
	return consumer, nil
}

// ProvideUniverse scrapes the S&P 500 list and falls back to the configured
// symbols.
func ProvideUniverse(cfg *config.Config, c icache.BytesCache, l *applogger.Logger) domrepo.TickerUniverse {
	static := internalrepo.NewStaticUniverse(cfg.Tickers.Symbols)
	if cfg.Tickers.Source == "static" {
		return static
	}
	wiki := internalrepo.NewWikipediaUniverse(cfg.Tickers.WikipediaURL, cfg.Tickers.Timeout, c, cfg.Tickers.CacheTTL, l)
	return internalrepo.NewFallbackUniverse(wiki, static, l)
}

// ProvideNewsProvider combines NewsAPI and RSS behind the cache, or serves
// canned headlines in mock mode or without an API key.
func ProvideNewsProvider(cfg *config.Config, c icache.BytesCache, l *applogger.Logger) domrepo.NewsProvider {
	key := strings.TrimSpace(cfg.News.NewsAPI.APIKey)
	if cfg.News.UseMock || (key == "" && len(cfg.News.RSS.Feeds) == 0) {
		l.Info("news: using mock headlines")
		return internalrepo.NewMockNewsProvider()
	}

	var sources []internalrepo.NamedNewsProvider
	if key != "" {
		sources = append(sources, internalrepo.NamedNewsProvider{
			Name: "newsapi",
			Provider: internalrepo.NewNewsAPIProvider(internalrepo.NewsAPIConfig{
				URL:      cfg.News.NewsAPI.URL,
				APIKey:   key,
				Query:    cfg.News.NewsAPI.Query,
				Language: cfg.News.NewsAPI.Language,
				PageSize: cfg.News.NewsAPI.PageSize,
				Timeout:  cfg.News.Timeout,
			}, l),
		})
	}
	if len(cfg.News.RSS.Feeds) > 0 {
		sources = append(sources, internalrepo.NamedNewsProvider{
			Name:     "rss",
			Provider: internalrepo.NewRSSNewsProvider(cfg.News.RSS.Feeds, cfg.News.Timeout, l),
		})
	}
	multi := internalrepo.NewMultiNewsProvider(l, sources...)
	return internalrepo.NewCachedNewsProvider(multi, c, cfg.News.CacheTTL, l)
}

// ProvidePriceProvider selects the close series source.
func ProvidePriceProvider(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (domrepo.PriceProvider, error) {
	switch cfg.Prices.Source {
	case "mock":
		return internalrepo.NewMockPriceProvider(), nil
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("prices: clickhouse source without a clickhouse client")
		}
		return internalrepo.NewClickHousePriceProvider(ch, cfg.Prices.ClickHouseTable, l)
	default:
		return internalrepo.NewYahooPriceProvider(internalrepo.YahooConfig{
			BaseURL:  cfg.Prices.Yahoo.BaseURL,
			Interval: cfg.Prices.Interval,
			Timeout:  cfg.Prices.Timeout,
			RPS:      cfg.Prices.Yahoo.RPS,
			Burst:    cfg.Prices.Yahoo.Burst,
			Workers:  cfg.Prices.Yahoo.Workers,
		}, l), nil
	}
}

// ProvideSentimentScorer selects the local lexicon or the remote model.
func ProvideSentimentScorer(cfg *config.Config) domsvc.SentimentScorer {
	if cfg.Sentiment.Source == "http" {
		return analytics.NewHTTPSentimentScorer(cfg.Sentiment.ServiceURL, cfg.Sentiment.Timeout)
	}
	return sentiment.NewLexiconScorer()
}

// ProvidePredictor creates the ridge predictor.
func ProvidePredictor(cfg *config.Config, l *applogger.Logger) domsvc.PricePredictor {
	return analytics.NewRegressionPredictor(
		analytics.WithVolatilityWindow(cfg.Analysis.VolatilityWindow),
		analytics.WithRidgeLambda(cfg.Analysis.RidgeLambda),
		analytics.WithPredictorLogger(l),
	)
}

// ProvideReportStore writes reports to the configured path.
func ProvideReportStore(cfg *config.Config) domrepo.ReportStore {
	return internalrepo.NewFileReportStore(cfg.Analysis.ReportPath)
}

// ProvideOrchestrator wires the pipeline stages.
func ProvideOrchestrator(
	cfg *config.Config,
	universe domrepo.TickerUniverse,
	news domrepo.NewsProvider,
	prices domrepo.PriceProvider,
	builder *usecase.CorrelationBuilder,
	predictor domsvc.PricePredictor,
	store domrepo.ReportStore,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *usecase.AnalysisOrchestrator {
	return usecase.NewAnalysisOrchestrator(
		usecase.OrchestratorConfig{
			NewsLookback:  cfg.Analysis.NewsLookback,
			PriceLookback: cfg.Analysis.PriceLookback,
		},
		universe, news, prices, builder, predictor, store, publisher, metrics, l,
	)
}

// ProvideRegistry creates the job registry.
func ProvideRegistry(cfg *config.Config) *progress.Registry {
	return progress.NewRegistry(progress.WithMaxJobs(cfg.Analysis.MaxJobs))
}

// ProvideAnalysisJobs launches analyses on the orchestrator.
func ProvideAnalysisJobs(registry *progress.Registry, orch *usecase.AnalysisOrchestrator, metrics domrepo.Metrics, l *applogger.Logger) *usecase.AnalysisJobs {
	return usecase.NewAnalysisJobs(registry, orch, metrics, l)
}

// ProvideProgressStreamer serves job progress with the configured idle timeout.
func ProvideProgressStreamer(cfg *config.Config, registry *progress.Registry, l *applogger.Logger) *usecase.ProgressStreamer {
	return usecase.NewProgressStreamer(registry, cfg.Analysis.IdleTimeout, l)
}

// ProvideRateLimiter limits job starts per client address.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideHTTPHandler creates the analysis API handler.
func ProvideHTTPHandler(
	l *applogger.Logger,
	jobs *usecase.AnalysisJobs,
	streamer *usecase.ProgressStreamer,
	store domrepo.ReportStore,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewAnalysisEchoHandler(l, jobs, streamer, store, limiter)
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(
	cfg *config.Config,
	handler xhttp.Handler,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
	l *applogger.Logger,
) *xhttp.Server {
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequestThreshold(cfg.Server.SlowRequest),
		xhttp.WithMetrics(cfg.Metrics.Enabled, reg, gatherer),
		xhttp.WithLogger(l),
	)
}

// ProvideJanitor sweeps finished jobs and idle rate limit buckets.
func ProvideJanitor(cfg *config.Config, registry *progress.Registry, limiter *ratelimit.Limiter, l *applogger.Logger) *usecase.Janitor {
	return usecase.NewJanitor(registry, limiter, cfg.Analysis.Retention, cfg.Analysis.SweepInterval, l)
}

// ProvideScheduler starts analyses on the configured cron schedule.
func ProvideScheduler(cfg *config.Config, jobs *usecase.AnalysisJobs, streamer *usecase.ProgressStreamer, l *applogger.Logger) *usecase.AnalysisScheduler {
	return usecase.NewAnalysisScheduler(cfg.Analysis.Schedule, jobs, streamer, l)
}

// ProvideKafkaRequestsHandler starts analyses from the requests topic.
func ProvideKafkaRequestsHandler(cfg *config.Config, jobs *usecase.AnalysisJobs, streamer *usecase.ProgressStreamer, l *applogger.Logger) *usecase.KafkaAnalysisRequestHandler {
	return usecase.NewKafkaAnalysisRequestHandler(cfg.Kafka.RequestsTopic, jobs, streamer, l)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	jobs *usecase.AnalysisJobs,
	janitor *usecase.Janitor,
	scheduler *usecase.AnalysisScheduler,
	consumer *pkgkafka.Consumer,
	requests *usecase.KafkaAnalysisRequestHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	rc *icache.RedisCache,
) *server.App {
	return server.New(server.Deps{
		Config:     cfg,
		Logger:     l,
		HTTPServer: httpServer,
		Jobs:       jobs,
		Janitor:    janitor,
		Scheduler:  scheduler,
		Consumer:   consumer,
		Requests:   requests,
		Producer:   producer,
		ClickHouse: chClient,
		Redis:      rc,
	})
}
