package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/service/cache"
	applogger "MarketPulse/pkg/logger"
)

// NamedNewsProvider tags a provider for logs.
type NamedNewsProvider struct {
	Name     string
	Provider domrepo.NewsProvider
}

// MultiNewsProvider merges several sources, dropping duplicates by URL and
// then by title. It fails only when every source failed.
type MultiNewsProvider struct {
	sources []NamedNewsProvider
	l       *applogger.Logger
}

var _ domrepo.NewsProvider = (*MultiNewsProvider)(nil)

func NewMultiNewsProvider(l *applogger.Logger, sources ...NamedNewsProvider) *MultiNewsProvider {
	if l == nil {
		l = applogger.NewNop()
	}
	return &MultiNewsProvider{sources: sources, l: l}
}

func (m *MultiNewsProvider) FetchNews(ctx context.Context, from, to time.Time) ([]models.NewsItem, error) {
	var (
		out  []models.NewsItem
		errs []error
	)
	seen := make(map[string]struct{})
	for _, src := range m.sources {
		items, err := src.Provider.FetchNews(ctx, from, to)
		if err != nil {
			m.l.Warn("news source failed", applogger.String("source", src.Name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		for _, it := range items {
			key := dedupeKey(it)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, it)
		}
	}
	if len(m.sources) > 0 && len(errs) == len(m.sources) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func dedupeKey(it models.NewsItem) string {
	if it.URL != "" {
		return "u:" + it.URL
	}
	return "t:" + strings.ToLower(strings.TrimSpace(it.Title))
}

// CachedNewsProvider memoizes a provider per hour-aligned window.
type CachedNewsProvider struct {
	next  domrepo.NewsProvider
	cache cache.BytesCache
	ttl   time.Duration
	l     *applogger.Logger
}

var _ domrepo.NewsProvider = (*CachedNewsProvider)(nil)

func NewCachedNewsProvider(next domrepo.NewsProvider, c cache.BytesCache, ttl time.Duration, l *applogger.Logger) *CachedNewsProvider {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CachedNewsProvider{next: next, cache: c, ttl: ttl, l: l}
}

func (p *CachedNewsProvider) FetchNews(ctx context.Context, from, to time.Time) ([]models.NewsItem, error) {
	if p.cache == nil || p.ttl <= 0 {
		return p.next.FetchNews(ctx, from, to)
	}
	key := fmt.Sprintf("news:%d:%d", from.Truncate(time.Hour).Unix(), to.Truncate(time.Hour).Unix())

	var cached []models.NewsItem
	if ok, err := cache.GetJSON(ctx, p.cache, key, &cached); err == nil && ok {
		p.l.Debug("news cache hit", applogger.String("key", key), applogger.Int("articles", len(cached)))
		return cached, nil
	}

	items, err := p.next.FetchNews(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, p.cache, key, items, p.ttl); err != nil {
		p.l.Warn("news cache store failed", applogger.String("key", key), applogger.Error(err))
	}
	return items, nil
}
