package usecase

import (
	"context"
	"errors"
	"testing"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/services/sentiment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationPositiveArticle(t *testing.T) {
	b := NewCorrelationBuilder(sentiment.NewLexiconScorer())
	news := []models.NewsItem{{
		Title:       "ABC shares surge after strong earnings beat",
		Description: "Analysts upgrade the stock",
		PublishedAt: "2024-03-02T10:00:00Z",
	}}
	corr, err := b.Build(context.Background(), news, []string{"ABC", "XYZ"}, map[string]float64{"ABC": 2.0, "XYZ": -1})
	require.NoError(t, err)

	require.Len(t, corr, 1)
	require.Len(t, corr["ABC"], 1)
	rec := corr["ABC"][0]
	assert.Greater(t, rec.Sentiment, 0.0)
	assert.Equal(t, 2.0, rec.PriceChange)
	assert.Equal(t, news[0].Title, rec.ArticleTitle)
	assert.Equal(t, "2024-03-02T10:00:00Z", rec.PublishedAt)
}

func TestCorrelationMatchingRules(t *testing.T) {
	calls := 0
	b := NewCorrelationBuilder(scoreFunc(func(context.Context, string) (float64, error) {
		calls++
		return 3, nil
	}))
	news := []models.NewsItem{
		{Title: "Apple (aapl) and Microsoft (MSFT) rally"},
		{Title: "Nothing to see", Description: "but aapl again"},
		{Title: "Unrelated"},
	}
	corr, err := b.Build(context.Background(), news,
		[]string{"AAPL", "MSFT", "AAPL", "", "NVDA", "GOOG"},
		map[string]float64{"AAPL": 1.5, "MSFT": -0.5, "NVDA": 4},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, calls, "one score per article")
	require.Len(t, corr["AAPL"], 2)
	assert.Equal(t, "Apple (aapl) and Microsoft (MSFT) rally", corr["AAPL"][0].ArticleTitle)
	assert.Equal(t, "Nothing to see", corr["AAPL"][1].ArticleTitle)
	assert.Equal(t, 1.0, corr["AAPL"][0].Sentiment, "scores are clamped")
	require.Len(t, corr["MSFT"], 1)
	assert.NotContains(t, corr, "NVDA")
	assert.NotContains(t, corr, "GOOG", "no price change")
}

func TestCorrelationLiteralSubstring(t *testing.T) {
	b := NewCorrelationBuilder(scoreFunc(func(context.Context, string) (float64, error) { return 0, nil }))
	corr, err := b.Build(context.Background(),
		[]models.NewsItem{{Title: "Markets are calm"}},
		[]string{"ARE", "CALM"},
		map[string]float64{"ARE": 1, "CALM": 2},
	)
	require.NoError(t, err)
	assert.Len(t, corr["ARE"], 1)
	assert.Len(t, corr["CALM"], 1)
}

func TestCorrelationScorerErrorIsFatal(t *testing.T) {
	b := NewCorrelationBuilder(scoreFunc(func(context.Context, string) (float64, error) {
		return 0, errors.New("model offline")
	}))
	_, err := b.Build(context.Background(), []models.NewsItem{{Title: "ABC"}}, []string{"ABC"}, map[string]float64{"ABC": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
}

func TestCorrelationEmptyInputs(t *testing.T) {
	b := NewCorrelationBuilder(sentiment.NewLexiconScorer())
	corr, err := b.Build(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, corr)
}
