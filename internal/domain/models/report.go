package models

import "time"

// CorrelationRecord pairs one matching article with its ticker's price move.
type CorrelationRecord struct {
	Sentiment    float64 `json:"sentiment"`
	PriceChange  float64 `json:"price_change"`
	ArticleTitle string  `json:"article_title"`
	PublishedAt  string  `json:"published_at"`
}

// Prediction is the next-period close forecast for one ticker.
type Prediction struct {
	CurrentPrice           float64 `json:"current_price"`
	PredictedPrice         float64 `json:"predicted_price"`
	PredictedChangePercent float64 `json:"predicted_change_percent"`
}

// AnalysisSummary is the body of a report.
type AnalysisSummary struct {
	NewsArticlesAnalyzed int                            `json:"news_articles_analyzed"`
	StocksAnalyzed       int                            `json:"stocks_analyzed"`
	Correlations         map[string][]CorrelationRecord `json:"correlations"`
	Predictions          map[string]Prediction          `json:"predictions"`
}

// AnalysisReport is the snapshot produced by one successful run.
// Treat it as read-only once built; NewAnalysisReport copies its inputs.
type AnalysisReport struct {
	Timestamp time.Time       `json:"timestamp"`
	Analysis  AnalysisSummary `json:"analysis"`
}

func NewAnalysisReport(
	ts time.Time,
	newsCount, stockCount int,
	correlations map[string][]CorrelationRecord,
	predictions map[string]Prediction,
) *AnalysisReport {
	corr := make(map[string][]CorrelationRecord, len(correlations))
	for k, v := range correlations {
		corr[k] = append([]CorrelationRecord(nil), v...)
	}
	pred := make(map[string]Prediction, len(predictions))
	for k, v := range predictions {
		pred[k] = v
	}
	return &AnalysisReport{
		Timestamp: ts,
		Analysis: AnalysisSummary{
			NewsArticlesAnalyzed: newsCount,
			StocksAnalyzed:       stockCount,
			Correlations:         corr,
			Predictions:          pred,
		},
	}
}
