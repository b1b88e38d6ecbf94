package repository

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"

	"golang.org/x/time/rate"
)

// YahooConfig configures the chart endpoint client.
type YahooConfig struct {
	BaseURL  string
	Interval string
	Timeout  time.Duration
	RPS      float64
	Burst    int
	Workers  int
}

// YahooPriceProvider pulls intraday closes from the Yahoo Finance chart API.
// Requests are rate limited and fanned out over a small worker pool; a ticker
// that fails is logged and left out of the result.
type YahooPriceProvider struct {
	cfg     YahooConfig
	client  *xhttp.Client
	limiter *rate.Limiter
	l       *applogger.Logger
}

var _ domrepo.PriceProvider = (*YahooPriceProvider)(nil)

func NewYahooPriceProvider(cfg YahooConfig, l *applogger.Logger) *YahooPriceProvider {
	if cfg.Interval == "" {
		cfg.Interval = "1h"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if l == nil {
		l = applogger.NewNop()
	}
	client := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Timeout),
		xhttp.WithUserAgent("Mozilla/5.0 (compatible; MarketPulse/1.0)"),
		xhttp.WithRetry(2, 250*time.Millisecond),
	)
	return &YahooPriceProvider{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		l:       l,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooPriceProvider) FetchPrices(ctx context.Context, tickers []string, from, to time.Time) (map[string]models.PriceSeries, error) {
	start := time.Now()
	jobs := make(chan string)
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[string]models.PriceSeries, len(tickers))
	)

	workers := p.cfg.Workers
	if workers > len(tickers) {
		workers = len(tickers)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				s, err := p.fetchOne(ctx, ticker, from, to)
				if err != nil {
					if ctx.Err() == nil {
						p.l.Warn("price fetch failed", applogger.String("ticker", ticker), applogger.Error(err))
					}
					continue
				}
				if len(s.Bars) == 0 {
					continue
				}
				mu.Lock()
				out[ticker] = s
				mu.Unlock()
			}
		}()
	}

feed:
	for _, t := range tickers {
		select {
		case jobs <- t:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.l.Debug("yahoo prices fetched",
		applogger.Int("requested", len(tickers)),
		applogger.Int("returned", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (p *YahooPriceProvider) fetchOne(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return models.PriceSeries{}, err
	}
	var resp yahooChartResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    strings.TrimRight(p.cfg.BaseURL, "/") + "/" + url.PathEscape(yahooSymbol(ticker)),
		QueryParams: map[string][]string{
			"period1":  {strconv.FormatInt(from.Unix(), 10)},
			"period2":  {strconv.FormatInt(to.Unix(), 10)},
			"interval": {p.cfg.Interval},
		},
	}, &resp)
	if err != nil {
		return models.PriceSeries{}, err
	}
	if resp.Chart.Error != nil {
		return models.PriceSeries{}, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	s := models.PriceSeries{Ticker: ticker}
	if len(resp.Chart.Result) == 0 {
		return s, nil
	}
	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return s, nil
	}
	closes := r.Indicators.Quote[0].Close
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		c := *closes[i]
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		s.Bars = append(s.Bars, models.PriceBar{Time: time.Unix(ts, 0).UTC(), Close: c})
	}
	return s, nil
}

// yahooSymbol maps share-class dots to the dash form the chart API expects.
func yahooSymbol(ticker string) string {
	return strings.ReplaceAll(ticker, ".", "-")
}
