// Package marketdata loads OHLCV series from PostgreSQL or JSON files.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tradegate/internal/contracts"
)

// ErrNoData is returned when no bars exist for the request
var ErrNoData = errors.New("no market data")

// Source loads the most recent bars for a symbol
type Source interface {
	LoadSeries(ctx context.Context, symbol string, tf contracts.Timeframe, limit int) (*contracts.PriceSeries, error)
}

// Schema creates the bar table used by Repository
const Schema = `
CREATE SCHEMA IF NOT EXISTS market;
CREATE TABLE IF NOT EXISTS market.bars (
	symbol     TEXT             NOT NULL,
	timeframe  TEXT             NOT NULL,
	bar_time   TIMESTAMPTZ      NOT NULL,
	open       DOUBLE PRECISION NOT NULL,
	high       DOUBLE PRECISION NOT NULL,
	low        DOUBLE PRECISION NOT NULL,
	close      DOUBLE PRECISION NOT NULL,
	volume     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (symbol, timeframe, bar_time)
);
`

// Repository reads and writes bars in market.bars
// ⭐ SSOT: the only SQL touching market data
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new bar repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the table when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure market schema: %w", err)
	}
	return nil
}

// LoadSeries returns the latest limit bars in ascending time order
func (r *Repository) LoadSeries(ctx context.Context, symbol string, tf contracts.Timeframe, limit int) (*contracts.PriceSeries, error) {
	query := `
		SELECT bar_time, open, high, low, close, volume
		FROM (
			SELECT bar_time, open, high, low, close, volume
			FROM market.bars
			WHERE symbol = $1 AND timeframe = $2
			ORDER BY bar_time DESC
			LIMIT $3
		) latest
		ORDER BY bar_time ASC
	`

	symbol = strings.ToUpper(symbol)
	rows, err := r.pool.Query(ctx, query, symbol, string(tf), limit)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}

	bars, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.Bar, error) {
		var b contracts.Bar
		err := row.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, symbol, tf)
	}

	return &contracts.PriceSeries{Symbol: symbol, Timeframe: tf, Bars: bars}, nil
}

// SaveSeries upserts every bar of the series in one batch
func (r *Repository) SaveSeries(ctx context.Context, series *contracts.PriceSeries) error {
	if series.Len() == 0 {
		return nil
	}

	query := `
		INSERT INTO market.bars (symbol, timeframe, bar_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, timeframe, bar_time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	symbol := strings.ToUpper(series.Symbol)
	batch := &pgx.Batch{}
	for _, b := range series.Bars {
		batch.Queue(query, symbol, string(series.Timeframe), b.Time, b.Open, b.High, b.Low, b.Close, b.Volume)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save bars: %w", err)
	}
	return nil
}
