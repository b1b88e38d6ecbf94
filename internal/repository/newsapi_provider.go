package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"
	applogger "MarketPulse/pkg/logger"
	"MarketPulse/pkg/util"
)

// NewsAPIConfig holds the /v2/everything query parameters.
type NewsAPIConfig struct {
	URL      string
	APIKey   string
	Query    string
	Language string
	PageSize int
	Timeout  time.Duration
}

// NewsAPIProvider fetches articles from newsapi.org.
type NewsAPIProvider struct {
	cfg    NewsAPIConfig
	client *xhttp.Client
	l      *applogger.Logger
}

var _ domrepo.NewsProvider = (*NewsAPIProvider)(nil)

func NewNewsAPIProvider(cfg NewsAPIConfig, l *applogger.Logger) *NewsAPIProvider {
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &NewsAPIProvider{
		cfg:    cfg,
		client: xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		l:      l,
	}
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

func (p *NewsAPIProvider) FetchNews(ctx context.Context, from, to time.Time) ([]models.NewsItem, error) {
	start := time.Now()
	var resp newsAPIResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    p.cfg.URL,
		Headers: map[string]string{
			"X-Api-Key": p.cfg.APIKey,
		},
		QueryParams: map[string][]string{
			"q":        {p.cfg.Query},
			"from":     {from.UTC().Format("2006-01-02T15:04:05")},
			"to":       {to.UTC().Format("2006-01-02T15:04:05")},
			"language": {p.cfg.Language},
			"sortBy":   {"publishedAt"},
			"pageSize": {strconv.Itoa(p.cfg.PageSize)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi: status %q: %s %s", resp.Status, resp.Code, resp.Message)
	}

	out := make([]models.NewsItem, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if a.Title == "" || strings.EqualFold(a.Title, "[Removed]") {
			continue
		}
		if !util.WithinWindow(a.PublishedAt, from, to) {
			continue
		}
		out = append(out, models.NewsItem{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	p.l.Debug("newsapi fetch ok",
		applogger.Int("articles", len(out)),
		applogger.Int("total_results", resp.TotalResults),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}
