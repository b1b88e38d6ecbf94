package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/services/analytics"
	"MarketPulse/internal/services/sentiment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	universe  stubUniverse
	news      stubNews
	prices    stubPrices
	predictor predictFunc
	store     *memStore
	publisher *recordingPublisher
	metrics   *countingMetrics
}

func newFixture() *orchestratorFixture {
	return &orchestratorFixture{
		universe: stubUniverse{tickers: []string{"ABC", "XYZ"}},
		news: stubNews{items: []models.NewsItem{
			{Title: "ABC profits surge", Description: "strong quarter", PublishedAt: "2024-03-02T10:00:00Z"},
			{Title: "XYZ faces lawsuit", PublishedAt: "2024-03-02T11:00:00Z"},
		}},
		prices: stubPrices{series: map[string]models.PriceSeries{
			"ABC": hourly(100, 101, 100.5, 102, 101.5, 102),
			"XYZ": hourly(50, 49),
		}},
		store:     &memStore{},
		publisher: &recordingPublisher{},
		metrics:   newCountingMetrics(),
	}
}

func (f *orchestratorFixture) build() *AnalysisOrchestrator {
	var predictor interface {
		Predict(context.Context, map[string]models.PriceSeries) (map[string]models.Prediction, error)
	} = analytics.NewRegressionPredictor()
	if f.predictor != nil {
		predictor = f.predictor
	}
	o := NewAnalysisOrchestrator(
		OrchestratorConfig{},
		f.universe, f.news, f.prices,
		NewCorrelationBuilder(sentiment.NewLexiconScorer()),
		predictor, f.store, f.publisher, f.metrics, nil,
	)
	o.now = func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) }
	return o
}

func percents(events []models.ProgressEvent) []int {
	out := make([]int, len(events))
	for i, e := range events {
		out[i] = e.Percent
	}
	return out
}

func TestOrchestratorSuccess(t *testing.T) {
	f := newFixture()
	sink := &sliceSink{}
	terminal := f.build().Run(context.Background(), "job-1", sink)

	require.Len(t, sink.events, 6)
	assert.Equal(t, []int{10, 20, 40, 60, 80, 100}, percents(sink.events))
	for _, ev := range sink.events[:5] {
		assert.Equal(t, models.EventUpdate, ev.Kind)
	}
	assert.Equal(t, "Fetching news articles...", sink.events[1].Stage)
	last := sink.events[5]
	assert.Equal(t, models.EventCompleted, last.Kind)
	assert.Equal(t, terminal, last)

	require.Len(t, f.store.saved, 1)
	report := f.store.saved[0]
	assert.Same(t, report, last.Report)
	assert.Equal(t, 2, report.Analysis.NewsArticlesAnalyzed)
	assert.Equal(t, 2, report.Analysis.StocksAnalyzed)
	require.Len(t, report.Analysis.Correlations["ABC"], 1)
	assert.Greater(t, report.Analysis.Correlations["ABC"][0].Sentiment, 0.0)
	assert.InDelta(t, 2.0, report.Analysis.Correlations["ABC"][0].PriceChange, 1e-9)
	require.Len(t, report.Analysis.Correlations["XYZ"], 1)
	assert.Less(t, report.Analysis.Correlations["XYZ"][0].Sentiment, 0.0)
	assert.Contains(t, report.Analysis.Predictions, "ABC")
	assert.NotContains(t, report.Analysis.Predictions, "XYZ", "too short for the volatility window")
	assert.Equal(t, time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), report.Timestamp)

	assert.Equal(t, models.EventCompleted, f.publisher.events["job-1"].Kind)
	finished, _ := f.metrics.snapshot()
	assert.Equal(t, 1, finished["completed"])
}

func TestOrchestratorProviderFailuresDegrade(t *testing.T) {
	f := newFixture()
	f.news.err = errors.New("newsapi down")
	f.prices.err = errors.New("yahoo down")
	sink := &sliceSink{}
	terminal := f.build().Run(context.Background(), "job-2", sink)

	require.Equal(t, models.EventCompleted, terminal.Kind)
	assert.Equal(t, 0, terminal.Report.Analysis.NewsArticlesAnalyzed)
	assert.Equal(t, 0, terminal.Report.Analysis.StocksAnalyzed)
	assert.Empty(t, terminal.Report.Analysis.Correlations)
	assert.Empty(t, terminal.Report.Analysis.Predictions)

	_, providerErrors := f.metrics.snapshot()
	assert.Equal(t, 1, providerErrors[StageNews])
	assert.Equal(t, 1, providerErrors[StagePrices])
}

func TestOrchestratorEmptyUniverse(t *testing.T) {
	f := newFixture()
	f.universe = stubUniverse{err: errors.New("wikipedia unreachable")}
	terminal := f.build().Run(context.Background(), "job-3", &sliceSink{})

	require.Equal(t, models.EventCompleted, terminal.Kind)
	assert.Equal(t, 2, terminal.Report.Analysis.NewsArticlesAnalyzed)
	assert.Equal(t, 0, terminal.Report.Analysis.StocksAnalyzed)
}

func TestOrchestratorStageErrorFails(t *testing.T) {
	f := newFixture()
	f.predictor = func(context.Context, map[string]models.PriceSeries) (map[string]models.Prediction, error) {
		return nil, errors.New("singular matrix")
	}
	sink := &sliceSink{}
	terminal := f.build().Run(context.Background(), "job-4", sink)

	assert.Equal(t, []int{10, 20, 40, 60, 80, 100}, percents(sink.events))
	assert.Equal(t, models.EventFailed, terminal.Kind)
	assert.Equal(t, models.FailureAnalysis, terminal.Code)
	assert.Equal(t, "prediction failed: singular matrix", terminal.Message)
	assert.True(t, terminal.Error)
	assert.Empty(t, f.store.saved)
	assert.Equal(t, models.EventFailed, f.publisher.events["job-4"].Kind)
	finished, _ := f.metrics.snapshot()
	assert.Equal(t, 1, finished["failed"])
}

func TestOrchestratorPanicBecomesFailure(t *testing.T) {
	f := newFixture()
	f.predictor = func(context.Context, map[string]models.PriceSeries) (map[string]models.Prediction, error) {
		var m map[string]int
		m["boom"] = 1
		return nil, nil
	}
	sink := &sliceSink{}
	terminal := f.build().Run(context.Background(), "job-5", sink)

	assert.Equal(t, models.EventFailed, terminal.Kind)
	assert.Equal(t, "unexpected fault during prediction", terminal.Message)
	assert.NotContains(t, terminal.Message, "goroutine")
	assert.Len(t, sink.events, 6)
}

func TestOrchestratorSaveFailure(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("disk full")
	terminal := f.build().Run(context.Background(), "job-6", &sliceSink{})
	assert.Equal(t, models.EventFailed, terminal.Kind)
	assert.Equal(t, "report failed: disk full", terminal.Message)
}

func TestOrchestratorCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &sliceSink{}
	terminal := f.build().Run(ctx, "job-7", sink)

	assert.Equal(t, models.EventFailed, terminal.Kind)
	assert.Equal(t, "universe failed: context canceled", terminal.Message)
	assert.Equal(t, []int{10, 100}, percents(sink.events))
}

func TestOrchestratorPublisherErrorIsIgnored(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("kafka down")
	terminal := f.build().Run(context.Background(), "job-8", &sliceSink{})
	assert.Equal(t, models.EventCompleted, terminal.Kind)
}
