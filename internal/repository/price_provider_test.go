package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYahooPriceProviderParsesChart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1h", q.Get("interval"))
		assert.Equal(t, fmt.Sprint(windowFrom.Unix()), q.Get("period1"))
		assert.Equal(t, fmt.Sprint(windowTo.Unix()), q.Get("period2"))

		switch strings.TrimPrefix(r.URL.Path, "/") {
		case "AAPL":
			fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1709290800,1709294400,1709298000],
				"indicators":{"quote":[{"close":[100.5,null,102.0]}]}}],"error":null}}`)
		case "BRK-B":
			fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1709290800],
				"indicators":{"quote":[{"close":[400]}]}}],"error":null}}`)
		case "EMPTY":
			fmt.Fprint(w, `{"chart":{"result":[],"error":null}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
		}
	}))
	defer srv.Close()

	p := NewYahooPriceProvider(YahooConfig{BaseURL: srv.URL, RPS: 1000, Burst: 10, Workers: 2, Timeout: time.Second}, nil)
	out, err := p.FetchPrices(context.Background(), []string{"AAPL", "BRK.B", "EMPTY", "NOPE"}, windowFrom, windowTo)
	require.NoError(t, err)

	require.Len(t, out, 2)
	aapl := out["AAPL"]
	require.Len(t, aapl.Bars, 2)
	assert.Equal(t, 100.5, aapl.Bars[0].Close)
	assert.Equal(t, 102.0, aapl.Bars[1].Close)
	assert.Equal(t, time.Unix(1709298000, 0).UTC(), aapl.Bars[1].Time)
	assert.Equal(t, "BRK.B", out["BRK.B"].Ticker)
}

func TestYahooPriceProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewYahooPriceProvider(YahooConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := p.FetchPrices(ctx, []string{"AAPL"}, windowFrom, windowTo)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockPriceProviderDeterministic(t *testing.T) {
	p := NewMockPriceProvider()
	from := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	a, err := p.FetchPrices(context.Background(), []string{"AAPL", "MSFT"}, from, to)
	require.NoError(t, err)
	b, err := p.FetchPrices(context.Background(), []string{"AAPL", "MSFT"}, from, to)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	s := a["AAPL"]
	require.Len(t, s.Bars, 25)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), s.Bars[0].Time)
	for i := 1; i < len(s.Bars); i++ {
		prev, cur := s.Bars[i-1].Close, s.Bars[i].Close
		assert.InDelta(t, 0, (cur-prev)/prev, 0.03+1e-12)
		assert.Greater(t, cur, 0.0)
	}
	assert.NotEqual(t, a["AAPL"].Bars[0].Close, a["MSFT"].Bars[0].Close)
}

func TestClickHousePriceProviderRejectsBadTable(t *testing.T) {
	_, err := newClickHousePriceProvider(nil, "candles; DROP TABLE x", nil)
	assert.Error(t, err)
	p, err := newClickHousePriceProvider(nil, "marketpulse.candles_1h", nil)
	require.NoError(t, err)
	assert.Equal(t, "marketpulse.candles_1h", p.table)
}

func TestCandleSchema(t *testing.T) {
	stmts, err := CandleSchema("marketpulse", "marketpulse.candles_1h")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS marketpulse", stmts[0])
	assert.Contains(t, stmts[1], "CREATE TABLE IF NOT EXISTS marketpulse.candles_1h")

	_, err = CandleSchema("a.b", "candles")
	assert.Error(t, err)
	_, err = CandleSchema("", "candles`x")
	assert.Error(t, err)
}
