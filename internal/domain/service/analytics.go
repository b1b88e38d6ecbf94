package service

import (
	"context"

	"MarketPulse/internal/domain/models"
)

// SentimentScorer maps text to a polarity in [-1, 1].
type SentimentScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// PricePredictor forecasts the next close for each series. Tickers that
// cannot be forecast are omitted.
type PricePredictor interface {
	Predict(ctx context.Context, series map[string]models.PriceSeries) (map[string]models.Prediction, error)
}
