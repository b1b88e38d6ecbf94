package usecase

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	domsvc "MarketPulse/internal/domain/service"
	applogger "MarketPulse/pkg/logger"
)

// ProgressSink receives the events of one job in order.
type ProgressSink interface {
	Publish(ev models.ProgressEvent) error
}

// Stage names used in failure messages, logs and metrics.
const (
	StageUniverse    = "universe"
	StageNews        = "news"
	StagePrices      = "prices"
	StageCorrelation = "correlation"
	StagePrediction  = "prediction"
	StageReport      = "report"
)

const (
	labelStarting     = "Starting analysis..."
	labelNews         = "Fetching news articles..."
	labelPrices       = "Fetching stock data..."
	labelCorrelations = "Analyzing correlations..."
	labelPredictions  = "Generating predictions..."
)

// OrchestratorConfig sets the data windows of a run.
type OrchestratorConfig struct {
	NewsLookback  time.Duration
	PriceLookback time.Duration
	// PublishTimeout bounds forwarding of the terminal event.
	PublishTimeout time.Duration
}

// AnalysisOrchestrator runs one analysis end to end and reports its progress.
type AnalysisOrchestrator struct {
	cfg       OrchestratorConfig
	universe  domrepo.TickerUniverse
	news      domrepo.NewsProvider
	prices    domrepo.PriceProvider
	builder   *CorrelationBuilder
	predictor domsvc.PricePredictor
	store     domrepo.ReportStore
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

// NewAnalysisOrchestrator wires a runner. publisher may be nil.
func NewAnalysisOrchestrator(
	cfg OrchestratorConfig,
	universe domrepo.TickerUniverse,
	news domrepo.NewsProvider,
	prices domrepo.PriceProvider,
	builder *CorrelationBuilder,
	predictor domsvc.PricePredictor,
	store domrepo.ReportStore,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *AnalysisOrchestrator {
	if cfg.NewsLookback <= 0 {
		cfg.NewsLookback = 48 * time.Hour
	}
	if cfg.PriceLookback <= 0 {
		cfg.PriceLookback = 24 * time.Hour
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &AnalysisOrchestrator{
		cfg:       cfg,
		universe:  universe,
		news:      news,
		prices:    prices,
		builder:   builder,
		predictor: predictor,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		l:         l,
		now:       time.Now,
	}
}

// Run executes every stage and publishes exactly one terminal event to sink,
// which it also returns.
func (o *AnalysisOrchestrator) Run(ctx context.Context, jobID string, sink ProgressSink) models.ProgressEvent {
	start := time.Now()
	l := o.l.With(applogger.String("job_id", jobID))
	l.Info("analysis started")

	var terminal models.ProgressEvent
	outcome := string(models.EventCompleted)
	report, err := o.execute(ctx, l, sink)
	if err != nil {
		outcome = string(models.EventFailed)
		terminal = models.FailedEvent(models.FailureAnalysis, err.Error())
		l.Error("analysis failed", applogger.Error(err), applogger.Duration("duration_ms", time.Since(start)))
	} else {
		terminal = models.CompletedEvent(report)
		l.Info("analysis completed",
			applogger.Int("news", report.Analysis.NewsArticlesAnalyzed),
			applogger.Int("stocks", report.Analysis.StocksAnalyzed),
			applogger.Int("predictions", len(report.Analysis.Predictions)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}

	if perr := sink.Publish(terminal); perr != nil {
		l.Warn("terminal event rejected", applogger.Error(perr))
	}
	o.metrics.RecordJobFinished(outcome, time.Since(start).Seconds())
	o.forward(ctx, l, jobID, terminal)
	return terminal
}

func (o *AnalysisOrchestrator) execute(ctx context.Context, l *applogger.Logger, sink ProgressSink) (*models.AnalysisReport, error) {
	var (
		tickers     []string
		news        []models.NewsItem
		series      map[string]models.PriceSeries
		corr        map[string][]models.CorrelationRecord
		predictions map[string]models.Prediction
		report      *models.AnalysisReport
	)

	o.progress(l, sink, labelStarting, 10)
	if err := o.runStage(ctx, l, StageUniverse, func(ctx context.Context) error {
		got, err := o.universe.Tickers(ctx)
		if err != nil {
			o.degrade(l, StageUniverse, err)
			return nil
		}
		tickers = got
		return nil
	}); err != nil {
		return nil, err
	}

	o.progress(l, sink, labelNews, 20)
	if err := o.runStage(ctx, l, StageNews, func(ctx context.Context) error {
		to := o.now().UTC()
		got, err := o.news.FetchNews(ctx, to.Add(-o.cfg.NewsLookback), to)
		if err != nil {
			o.degrade(l, StageNews, err)
			return nil
		}
		news = got
		return nil
	}); err != nil {
		return nil, err
	}

	o.progress(l, sink, labelPrices, 40)
	if err := o.runStage(ctx, l, StagePrices, func(ctx context.Context) error {
		series = map[string]models.PriceSeries{}
		if len(tickers) == 0 {
			return nil
		}
		to := o.now().UTC()
		got, err := o.prices.FetchPrices(ctx, tickers, to.Add(-o.cfg.PriceLookback), to)
		if err != nil {
			o.degrade(l, StagePrices, err)
			return nil
		}
		for t, s := range got {
			if len(s.Bars) > 0 {
				series[t] = s
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	o.progress(l, sink, labelCorrelations, 60)
	if err := o.runStage(ctx, l, StageCorrelation, func(ctx context.Context) error {
		changes := make(map[string]float64, len(series))
		for t, s := range series {
			if pct, ok := s.ChangePercent(); ok {
				changes[t] = pct
			}
		}
		var err error
		corr, err = o.builder.Build(ctx, news, tickers, changes)
		return err
	}); err != nil {
		return nil, err
	}

	o.progress(l, sink, labelPredictions, 80)
	if err := o.runStage(ctx, l, StagePrediction, func(ctx context.Context) error {
		var err error
		predictions, err = o.predictor.Predict(ctx, series)
		return err
	}); err != nil {
		return nil, err
	}

	if err := o.runStage(ctx, l, StageReport, func(ctx context.Context) error {
		report = models.NewAnalysisReport(o.now().UTC(), len(news), len(series), corr, predictions)
		return o.store.Save(ctx, report)
	}); err != nil {
		return nil, err
	}
	return report, nil
}

// runStage turns an error or panic inside fn into a stage fault.
func (o *AnalysisOrchestrator) runStage(ctx context.Context, l *applogger.Logger, name string, fn func(context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.Error("stage panicked", applogger.String("stage", name), applogger.Any("panic", r))
			err = fmt.Errorf("unexpected fault during %s", name)
		}
		o.metrics.RecordStageLatency(name, time.Since(start).Seconds())
	}()

	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("%s failed: %w", name, cerr)
	}
	if ferr := fn(ctx); ferr != nil {
		return fmt.Errorf("%s failed: %w", name, ferr)
	}
	l.Debug("stage done", applogger.String("stage", name), applogger.Duration("duration_ms", time.Since(start)))
	return nil
}

func (o *AnalysisOrchestrator) progress(l *applogger.Logger, sink ProgressSink, label string, pct int) {
	if err := sink.Publish(models.UpdateEvent(label, pct)); err != nil {
		l.Warn("progress event rejected", applogger.String("status", label), applogger.Error(err))
	}
}

func (o *AnalysisOrchestrator) degrade(l *applogger.Logger, provider string, err error) {
	o.metrics.RecordProviderError(provider)
	l.Warn("provider failed, continuing with empty data",
		applogger.String("provider", provider),
		applogger.Error(err),
	)
}

func (o *AnalysisOrchestrator) forward(ctx context.Context, l *applogger.Logger, jobID string, ev models.ProgressEvent) {
	if o.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.PublishTimeout)
	defer cancel()
	if err := o.publisher.PublishEvent(pctx, jobID, ev); err != nil {
		l.Warn("terminal event not forwarded", applogger.Error(err))
	}
}
