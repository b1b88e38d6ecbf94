package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 5000, c.Server.Port)
	assert.Equal(t, 60*time.Second, c.Analysis.IdleTimeout)
	assert.Equal(t, "market_analysis_report.json", c.Analysis.ReportPath)
	assert.Equal(t, 3, c.Analysis.VolatilityWindow)
	assert.Equal(t, "yahoo", c.Prices.Source)
	assert.Equal(t, "wikipedia", c.Tickers.Source)
	assert.Equal(t, 100, c.News.NewsAPI.PageSize)
	assert.Equal(t, time.Duration(0), c.Server.WriteTimeout)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
analysis:
  idle_timeout: 5s
  report_path: /tmp/out.json
prices:
  source: mock
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.Analysis.IdleTimeout)
	assert.Equal(t, "/tmp/out.json", c.Analysis.ReportPath)
	assert.Equal(t, "mock", c.Prices.Source)
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad price source":   "prices:\n  source: bloomberg\n",
		"static no symbols":  "tickers:\n  source: static\n",
		"kafka no brokers":   "kafka:\n  enabled: true\n",
		"clickhouse off":     "prices:\n  source: clickhouse\n",
		"http scorer no url": "sentiment:\n  source: http\n",
		"bad price interval": "prices:\n  interval: 1x\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	env := map[string]string{
		"NEWSAPI_KEY":   "k1",
		"USE_MOCK_DATA": "true",
		"TICKERS":       "AAPL, MSFT,,TSLA",
		"PORT":          "9090",
		"LOG_LEVEL":     "DEBUG",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "k1", c.News.NewsAPI.APIKey)
	assert.True(t, c.News.UseMock)
	assert.Equal(t, "mock", c.Prices.Source)
	assert.Equal(t, "static", c.Tickers.Source)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, c.Tickers.Symbols)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "debug", c.Log.Level)
	require.NoError(t, c.Validate())
}

func TestLoadSampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("sample config not present")
	}
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
}
