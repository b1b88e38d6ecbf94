package repository

import (
	"context"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
)

// MockNewsProvider serves a fixed set of ticker-bearing headlines, used when
// no news API key is configured.
type MockNewsProvider struct {
	now func() time.Time
}

var _ domrepo.NewsProvider = (*MockNewsProvider)(nil)

func NewMockNewsProvider() *MockNewsProvider {
	return &MockNewsProvider{now: time.Now}
}

type mockHeadline struct {
	title, description, source string
	ageHours                   int
}

var mockHeadlines = []mockHeadline{
	{"Apple (AAPL) Reports Record Quarterly Revenue, Exceeding Analyst Expectations", "Apple's latest earnings report shows strong iPhone sales and growth in services revenue.", "Financial Times", 2},
	{"Microsoft (MSFT) Cloud Business Surges as AI Adoption Accelerates", "Azure revenue growth beats estimates as enterprise customers expand AI workloads.", "Wall Street Journal", 4},
	{"Amazon (AMZN) Expands Logistics Network With New Fulfillment Centers", "The expansion is expected to boost delivery speeds and profit margins.", "Reuters", 6},
	{"Alphabet (GOOGL) Faces Antitrust Probe Over Advertising Practices", "Regulators raise concerns about search advertising dominance.", "Bloomberg", 8},
	{"Tesla (TSLA) Shares Plunge After Disappointing Delivery Numbers", "Deliveries fell short of estimates amid weaker demand and price cuts.", "CNBC", 10},
	{"Meta (META) Launches New AI Tools for Advertisers", "The company says the tools boost campaign performance for small businesses.", "The Verge", 12},
	{"NVIDIA (NVDA) Stock Soars on Strong Data Center Demand", "Record data center revenue drives an impressive quarterly beat.", "MarketWatch", 14},
	{"JPMorgan (JPM) Warns of Rising Credit Risks in Consumer Lending", "The bank increased loan loss provisions citing economic uncertainty.", "Financial Times", 16},
	{"Walmart (WMT) Beats Earnings Estimates as Grocery Sales Rise", "Strong grocery demand and e-commerce growth lifted results.", "Reuters", 18},
	{"Costco (COST) Membership Fee Increase Draws Mixed Reactions", "Analysts debate the impact on renewal rates amid inflation worries.", "Bloomberg", 20},
	{"Tesla (TSLA) Recalls Vehicles Over Software Issue", "The recall covers vehicles sold in the last two years.", "Associated Press", 22},
	{"Markets Rally as Inflation Data Comes In Lower Than Expected", "Broad gains across sectors as investors grow optimistic about rate cuts.", "CNBC", 24},
}

func (p *MockNewsProvider) FetchNews(_ context.Context, from, to time.Time) ([]models.NewsItem, error) {
	now := p.now().UTC()
	out := make([]models.NewsItem, 0, len(mockHeadlines))
	for _, h := range mockHeadlines {
		ts := now.Add(-time.Duration(h.ageHours) * time.Hour)
		if ts.Before(from) || ts.After(to) {
			continue
		}
		out = append(out, models.NewsItem{
			Title:       h.title,
			Description: h.description,
			URL:         "https://example.com/news/" + ts.Format("20060102150405"),
			Source:      h.source,
			PublishedAt: ts.Format(time.RFC3339),
		})
	}
	return out, nil
}
