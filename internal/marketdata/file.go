package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wonny/tradegate/internal/contracts"
)

// ReadSeries decodes a JSON PriceSeries
func ReadSeries(r io.Reader) (*contracts.PriceSeries, error) {
	var series contracts.PriceSeries
	if err := json.NewDecoder(r).Decode(&series); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	series.Symbol = strings.ToUpper(series.Symbol)
	return &series, nil
}

// LoadFile reads a JSON PriceSeries from disk
func LoadFile(path string) (*contracts.PriceSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	return ReadSeries(f)
}

// DirSource serves series from <Dir>/<SYMBOL>_<timeframe>.json
type DirSource struct {
	Dir string
}

// Path returns the file name used for symbol and timeframe
func (d DirSource) Path(symbol string, tf contracts.Timeframe) string {
	return filepath.Join(d.Dir, fmt.Sprintf("%s_%s.json", strings.ToUpper(symbol), tf))
}

// LoadSeries reads the file and keeps the last limit bars (limit <= 0 keeps all)
func (d DirSource) LoadSeries(_ context.Context, symbol string, tf contracts.Timeframe, limit int) (*contracts.PriceSeries, error) {
	series, err := LoadFile(d.Path(symbol, tf))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, symbol, tf)
	}
	if err != nil {
		return nil, err
	}

	if series.Symbol == "" {
		series.Symbol = strings.ToUpper(symbol)
	}
	if series.Timeframe == "" {
		series.Timeframe = tf
	}
	if limit > 0 && series.Len() > limit {
		series.Bars = series.Bars[series.Len()-limit:]
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, symbol, tf)
	}
	return series, nil
}
