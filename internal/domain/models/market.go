package models

import "time"

// NewsItem is a single article returned by a news provider.
type NewsItem struct {
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt string // provider timestamp, passed through verbatim
}

// Text is the string scored for sentiment and matched against tickers.
func (n NewsItem) Text() string {
	return n.Title + " " + n.Description
}

// PriceBar is one closing price observation.
type PriceBar struct {
	Time  time.Time
	Close float64
}

// PriceSeries is an ordered (oldest first) close series for one ticker.
type PriceSeries struct {
	Ticker string
	Bars   []PriceBar
}

// ChangePercent returns (last-first)/first*100 over the series.
// ok is false when the series is empty or starts at zero.
func (s PriceSeries) ChangePercent() (pct float64, ok bool) {
	if len(s.Bars) == 0 {
		return 0, false
	}
	first := s.Bars[0].Close
	last := s.Bars[len(s.Bars)-1].Close
	if first == 0 {
		return 0, false
	}
	return (last - first) / first * 100, true
}
