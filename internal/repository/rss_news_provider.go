package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"

	"github.com/mmcdole/gofeed"
)

// RSSNewsProvider reads articles from a list of RSS/Atom feeds.
type RSSNewsProvider struct {
	feeds  []string
	parser *gofeed.Parser
	l      *applogger.Logger
}

var _ domrepo.NewsProvider = (*RSSNewsProvider)(nil)

func NewRSSNewsProvider(feeds []string, timeout time.Duration, l *applogger.Logger) *RSSNewsProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: timeout}
	fp.UserAgent = "MarketPulse/1.0"
	return &RSSNewsProvider{feeds: feeds, parser: fp, l: l}
}

// FetchNews returns items published in [from, to]. Items without a
// publication date are kept. A feed failure only fails the call when every
// feed failed.
func (p *RSSNewsProvider) FetchNews(ctx context.Context, from, to time.Time) ([]models.NewsItem, error) {
	var out []models.NewsItem
	var errs []error
	for _, url := range p.feeds {
		feed, err := p.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			p.l.Warn("rss feed failed", applogger.String("feed", url), applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		for _, item := range feed.Items {
			if item == nil || item.Title == "" {
				continue
			}
			published := item.Published
			if item.PublishedParsed != nil {
				published = item.PublishedParsed.UTC().Format(time.RFC3339)
			}
			if !util.WithinWindow(published, from, to) {
				continue
			}
			out = append(out, models.NewsItem{
				Title:       item.Title,
				Description: item.Description,
				URL:         item.Link,
				Source:      feed.Title,
				PublishedAt: published,
			})
		}
	}
	if len(errs) > 0 && len(errs) == len(p.feeds) {
		return nil, fmt.Errorf("rss: %w", errors.Join(errs...))
	}
	return out, nil
}
