package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
)

type stubUniverse struct {
	tickers []string
	err     error
}

func (s stubUniverse) Tickers(context.Context) ([]string, error) { return s.tickers, s.err }

type stubNews struct {
	items []models.NewsItem
	err   error
}

func (s stubNews) FetchNews(context.Context, time.Time, time.Time) ([]models.NewsItem, error) {
	return s.items, s.err
}

type stubPrices struct {
	series map[string]models.PriceSeries
	err    error
}

func (s stubPrices) FetchPrices(_ context.Context, tickers []string, _, _ time.Time) (map[string]models.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]models.PriceSeries)
	for _, t := range tickers {
		if ser, ok := s.series[t]; ok {
			out[t] = ser
		}
	}
	return out, nil
}

type predictFunc func(context.Context, map[string]models.PriceSeries) (map[string]models.Prediction, error)

func (f predictFunc) Predict(ctx context.Context, s map[string]models.PriceSeries) (map[string]models.Prediction, error) {
	return f(ctx, s)
}

type scoreFunc func(context.Context, string) (float64, error)

func (f scoreFunc) Score(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

type memStore struct {
	mu    sync.Mutex
	saved []*models.AnalysisReport
	err   error
}

func (s *memStore) Save(_ context.Context, r *models.AnalysisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, r)
	return nil
}

func (s *memStore) Latest(context.Context) (*models.AnalysisReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saved) == 0 {
		return nil, errors.New("none")
	}
	return s.saved[len(s.saved)-1], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string]models.ProgressEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, id string, ev models.ProgressEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string]models.ProgressEvent)
	}
	p.events[id] = ev
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type countingMetrics struct {
	mu             sync.Mutex
	started        map[string]int
	finished       map[string]int
	providerErrors map[string]int
	stages         map[string]int
	active         int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		started:        map[string]int{},
		finished:       map[string]int{},
		providerErrors: map[string]int{},
		stages:         map[string]int{},
	}
}

func (m *countingMetrics) RecordJobStarted(source string) {
	m.mu.Lock()
	m.started[source]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordJobFinished(outcome string, _ float64) {
	m.mu.Lock()
	m.finished[outcome]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordStageLatency(stage string, _ float64) {
	m.mu.Lock()
	m.stages[stage]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordProviderError(provider string) {
	m.mu.Lock()
	m.providerErrors[provider]++
	m.mu.Unlock()
}

func (m *countingMetrics) SetActiveJobs(n int) {
	m.mu.Lock()
	m.active = n
	m.mu.Unlock()
}

func (m *countingMetrics) snapshot() (finished, providerErrors map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	finished = make(map[string]int)
	for k, v := range m.finished {
		finished[k] = v
	}
	providerErrors = make(map[string]int)
	for k, v := range m.providerErrors {
		providerErrors[k] = v
	}
	return finished, providerErrors
}

type sliceSink struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (s *sliceSink) Publish(ev models.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func hourly(closes ...float64) models.PriceSeries {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := models.PriceSeries{}
	for i, c := range closes {
		s.Bars = append(s.Bars, models.PriceBar{Time: start.Add(time.Duration(i) * time.Hour), Close: c})
	}
	return s
}
