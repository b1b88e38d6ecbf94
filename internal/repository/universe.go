package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/cache"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"

	"github.com/PuerkitoBio/goquery"
)

// ErrEmptyUniverse is returned when a source yields no symbols.
var ErrEmptyUniverse = errors.New("ticker universe is empty")

// StaticUniverse serves a configured symbol list.
type StaticUniverse struct {
	symbols []string
}

var _ domrepo.TickerUniverse = (*StaticUniverse)(nil)

func NewStaticUniverse(symbols []string) *StaticUniverse {
	return &StaticUniverse{symbols: util.UniqueUpper(symbols)}
}

func (u *StaticUniverse) Tickers(context.Context) ([]string, error) {
	if len(u.symbols) == 0 {
		return nil, ErrEmptyUniverse
	}
	out := make([]string, len(u.symbols))
	copy(out, u.symbols)
	return out, nil
}

// WikipediaUniverse scrapes S&P 500 constituents from the Wikipedia list
// page. Results are cached when a cache is configured.
type WikipediaUniverse struct {
	url    string
	client *xhttp.Client
	cache  cache.BytesCache
	ttl    time.Duration
	l      *applogger.Logger
}

var _ domrepo.TickerUniverse = (*WikipediaUniverse)(nil)

const universeCacheKey = "universe:sp500"

func NewWikipediaUniverse(url string, timeout time.Duration, c cache.BytesCache, ttl time.Duration, l *applogger.Logger) *WikipediaUniverse {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &WikipediaUniverse{
		url:    url,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithRetry(2, 500*time.Millisecond)),
		cache:  c,
		ttl:    ttl,
		l:      l,
	}
}

func (u *WikipediaUniverse) Tickers(ctx context.Context) ([]string, error) {
	if u.cache != nil {
		var cached []string
		if ok, err := cache.GetJSON(ctx, u.cache, universeCacheKey, &cached); err == nil && ok && len(cached) > 0 {
			return cached, nil
		}
	}

	start := time.Now()
	symbols, err := u.scrape(ctx)
	if err != nil {
		return nil, err
	}
	u.l.Info("ticker universe loaded",
		applogger.Int("symbols", len(symbols)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	if u.cache != nil && u.ttl > 0 {
		if err := cache.SetJSON(ctx, u.cache, universeCacheKey, symbols, u.ttl); err != nil {
			u.l.Warn("universe cache store failed", applogger.Error(err))
		}
	}
	return symbols, nil
}

func (u *WikipediaUniverse) scrape(ctx context.Context) ([]string, error) {
	var page []byte
	if err := u.client.SendAndParse(ctx, &xhttp.RequestOptions{URL: u.url}, &page); err != nil {
		return nil, fmt.Errorf("wikipedia fetch: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("wikipedia parse: %w", err)
	}
	var raw []string
	doc.Find("table#constituents tbody tr").Each(func(_ int, row *goquery.Selection) {
		sym := strings.TrimSpace(row.Find("td").First().Text())
		if sym != "" {
			raw = append(raw, sym)
		}
	})
	symbols := util.UniqueUpper(raw)
	if len(symbols) == 0 {
		return nil, ErrEmptyUniverse
	}
	return symbols, nil
}

// FallbackUniverse asks primary first and switches to fallback when primary
// fails or comes back empty.
type FallbackUniverse struct {
	primary  domrepo.TickerUniverse
	fallback domrepo.TickerUniverse
	l        *applogger.Logger
}

var _ domrepo.TickerUniverse = (*FallbackUniverse)(nil)

func NewFallbackUniverse(primary, fallback domrepo.TickerUniverse, l *applogger.Logger) *FallbackUniverse {
	if l == nil {
		l = applogger.NewNop()
	}
	return &FallbackUniverse{primary: primary, fallback: fallback, l: l}
}

func (u *FallbackUniverse) Tickers(ctx context.Context) ([]string, error) {
	symbols, err := u.primary.Tickers(ctx)
	if err == nil && len(symbols) > 0 {
		return symbols, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	u.l.Warn("primary ticker universe unavailable, using fallback", applogger.Error(err))
	return u.fallback.Tickers(ctx)
}
