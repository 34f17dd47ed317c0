package marketdata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/pkg/config"
	"github.com/wonny/tradegate/pkg/database"
)

func sampleSeries(n int) *contracts.PriceSeries {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := range bars {
		c := 50 + float64(i)
		bars[i] = contracts.Bar{Time: start.Add(time.Duration(i) * time.Hour), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10}
	}
	return &contracts.PriceSeries{Symbol: "ETHUSDT", Timeframe: contracts.Timeframe1h, Bars: bars}
}

func writeSeries(t *testing.T, path string, s *contracts.PriceSeries) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestReadSeries(t *testing.T) {
	series, err := ReadSeries(strings.NewReader(`{
		"symbol": "btcusdt",
		"timeframe": "4h",
		"bars": [{"time": "2025-01-01T00:00:00Z", "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 3}]
	}`))

	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", series.Symbol)
	assert.Equal(t, contracts.Timeframe4h, series.Timeframe)
	require.Equal(t, 1, series.Len())
	assert.InDelta(t, 1.5, series.Last().Close, 1e-12)

	_, err = ReadSeries(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	src := DirSource{Dir: dir}
	writeSeries(t, src.Path("ethusdt", contracts.Timeframe1h), sampleSeries(30))

	series, err := src.LoadSeries(context.Background(), "ETHUSDT", contracts.Timeframe1h, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, series.Len())
	assert.InDelta(t, 79, series.Last().Close, 1e-12)

	all, err := src.LoadSeries(context.Background(), "ETHUSDT", contracts.Timeframe1h, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, all.Len())

	_, err = src.LoadSeries(context.Background(), "SOLUSDT", contracts.Timeframe1h, 10)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRepository_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, &config.Config{Database: config.DatabaseConfig{
		URL:             url,
		MaxConns:        2,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
		MaxConnIdleTime: time.Minute,
	}})
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	series := sampleSeries(25)
	series.Symbol = "TESTRT" + time.Now().Format("150405")
	require.NoError(t, repo.SaveSeries(ctx, series))

	loaded, err := repo.LoadSeries(ctx, series.Symbol, contracts.Timeframe1h, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, loaded.Len())
	assert.True(t, loaded.Last().Time.Equal(series.Last().Time))
	assert.NoError(t, loaded.Validate())

	_, err = repo.LoadSeries(ctx, "NOSUCHSYMBOL", contracts.Timeframe1h, 20)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = db.Pool.Exec(ctx, `DELETE FROM market.bars WHERE symbol = $1`, series.Symbol)
	require.NoError(t, err)
}
