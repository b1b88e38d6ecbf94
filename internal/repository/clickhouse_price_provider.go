package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"MarketPulse/internal/domain/models"
	domrepo "MarketPulse/internal/domain/repository"
	pkgch "MarketPulse/pkg/clickhouse"
	applogger "MarketPulse/pkg/logger"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHousePriceProvider reads hourly closes from a candle table keyed by
// (symbol, bucket).
type ClickHousePriceProvider struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

var _ domrepo.PriceProvider = (*ClickHousePriceProvider)(nil)

// CandleSchema returns the idempotent DDL for the candle table read by
// ClickHousePriceProvider.
func CandleSchema(database, table string) ([]string, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	var stmts []string
	if database != "" {
		if !tableNameRe.MatchString(database) || strings.Contains(database, ".") {
			return nil, fmt.Errorf("invalid clickhouse database name %q", database)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database))
	}
	return append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol LowCardinality(String),
    bucket DateTime,
    close Float64
) ENGINE = ReplacingMergeTree ORDER BY (symbol, bucket)`, table)), nil
}

func NewClickHousePriceProvider(ch *pkgch.Client, table string, l *applogger.Logger) (*ClickHousePriceProvider, error) {
	return newClickHousePriceProvider(ch.DB(), table, l)
}

func newClickHousePriceProvider(db *sql.DB, table string, l *applogger.Logger) (*ClickHousePriceProvider, error) {
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table name %q", table)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHousePriceProvider{db: db, table: table, l: l}, nil
}

func (s *ClickHousePriceProvider) FetchPrices(ctx context.Context, tickers []string, from, to time.Time) (map[string]models.PriceSeries, error) {
	out := make(map[string]models.PriceSeries, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		series, err := s.series(ctx, ticker, from, to)
		if err != nil {
			s.l.Warn("clickhouse price query failed",
				applogger.String("table", s.table),
				applogger.String("ticker", ticker),
				applogger.Error(err),
			)
			continue
		}
		if len(series.Bars) > 0 {
			out[ticker] = series
		}
	}
	return out, nil
}

func (s *ClickHousePriceProvider) series(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT bucket, close
        FROM %s
        WHERE symbol = ? AND bucket >= ? AND bucket <= ?
        ORDER BY bucket ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), ticker, from, to)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("query closes: %w", err)
	}
	defer rows.Close()

	out := models.PriceSeries{Ticker: ticker}
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Time, &b.Close); err != nil {
			return models.PriceSeries{}, fmt.Errorf("scan close: %w", err)
		}
		out.Bars = append(out.Bars, b)
	}
	if err := rows.Err(); err != nil {
		return models.PriceSeries{}, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse closes ok",
		applogger.String("table", s.table),
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(out.Bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}
