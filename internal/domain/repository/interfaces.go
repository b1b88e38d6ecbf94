package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
)

// TickerUniverse lists the symbols an analysis considers.
type TickerUniverse interface {
	Tickers(ctx context.Context) ([]string, error)
}

// NewsProvider returns articles published in [from, to].
type NewsProvider interface {
	FetchNews(ctx context.Context, from, to time.Time) ([]models.NewsItem, error)
}

// PriceProvider returns close series for the requested tickers. Tickers with
// no data are absent from the result.
type PriceProvider interface {
	FetchPrices(ctx context.Context, tickers []string, from, to time.Time) (map[string]models.PriceSeries, error)
}

// ReportStore persists the latest analysis report.
type ReportStore interface {
	Save(ctx context.Context, report *models.AnalysisReport) error
	Latest(ctx context.Context) (*models.AnalysisReport, error)
}

// EventPublisher forwards terminal job events to an external sink.
type EventPublisher interface {
	PublishEvent(ctx context.Context, jobID string, ev models.ProgressEvent) error
	Close() error
}

type Metrics interface {
	RecordJobStarted(source string)
	RecordJobFinished(outcome string, seconds float64)
	RecordStageLatency(stage string, seconds float64)
	RecordProviderError(provider string)
	SetActiveJobs(n int)
}
