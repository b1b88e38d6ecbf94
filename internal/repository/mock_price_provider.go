package repository

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/util"
)

// MockPriceProvider generates a deterministic hourly random walk per ticker.
// The same ticker and window always produce the same series.
type MockPriceProvider struct {
	step time.Duration
}

var _ domrepo.PriceProvider = (*MockPriceProvider)(nil)

func NewMockPriceProvider() *MockPriceProvider {
	return &MockPriceProvider{step: time.Hour}
}

func (p *MockPriceProvider) FetchPrices(ctx context.Context, tickers []string, from, to time.Time) (map[string]models.PriceSeries, error) {
	from, to = util.AlignFromTo(from, to, p.step)
	out := make(map[string]models.PriceSeries, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(ticker))
		rng := rand.New(rand.NewSource(int64(h.Sum64() ^ uint64(from.Unix()))))

		price := 50 + rng.Float64()*450
		s := models.PriceSeries{Ticker: ticker}
		for ts := from; !ts.After(to); ts = ts.Add(p.step) {
			s.Bars = append(s.Bars, models.PriceBar{Time: ts, Close: price})
			// at most 3% per step either way
			price *= 1 + (rng.Float64()*2-1)*0.03
		}
		out[ticker] = s
	}
	return out, nil
}
