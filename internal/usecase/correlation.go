package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"MarketPulse/internal/domain/models"
	domsvc "MarketPulse/internal/domain/service"
)

// CorrelationBuilder pairs article sentiment with the price move of every
// ticker the article mentions.
type CorrelationBuilder struct {
	scorer domsvc.SentimentScorer
}

func NewCorrelationBuilder(scorer domsvc.SentimentScorer) *CorrelationBuilder {
	return &CorrelationBuilder{scorer: scorer}
}

// Build scores each article once and appends a record under every ticker
// whose symbol occurs in the article text, case-insensitively. Tickers
// without a price change or without a matching article are absent.
func (b *CorrelationBuilder) Build(
	ctx context.Context,
	news []models.NewsItem,
	tickers []string,
	priceChanges map[string]float64,
) (map[string][]models.CorrelationRecord, error) {
	type symbol struct {
		ticker string
		upper  string
	}
	symbols := make([]symbol, 0, len(tickers))
	seen := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		symbols = append(symbols, symbol{ticker: t, upper: strings.ToUpper(t)})
	}

	out := make(map[string][]models.CorrelationRecord)
	for i, item := range news {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := item.Text()
		score, err := b.scorer.Score(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("score article %d: %w", i, err)
		}
		score = clampUnit(score)

		upper := strings.ToUpper(text)
		for _, s := range symbols {
			change, ok := priceChanges[s.ticker]
			if !ok || !strings.Contains(upper, s.upper) {
				continue
			}
			out[s.ticker] = append(out[s.ticker], models.CorrelationRecord{
				Sentiment:    score,
				PriceChange:  change,
				ArticleTitle: item.Title,
				PublishedAt:  item.PublishedAt,
			})
		}
	}
	return out, nil
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
