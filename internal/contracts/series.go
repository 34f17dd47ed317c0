package contracts

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSeries marks a price series that cannot be analysed.
var ErrInvalidSeries = errors.New("invalid price series")

// Bar is one OHLCV sample
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Timeframe is the bar interval tag supplied with a series
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

// BarsPerYear returns the annualisation factor for a continuously traded market.
// Unknown timeframes are treated as daily.
func (tf Timeframe) BarsPerYear() float64 {
	switch tf {
	case Timeframe1m:
		return 525600
	case Timeframe5m:
		return 105120
	case Timeframe15m:
		return 35040
	case Timeframe30m:
		return 17520
	case Timeframe1h:
		return 8760
	case Timeframe4h:
		return 2190
	case Timeframe1w:
		return 52
	default:
		return 365
	}
}

// PriceSeries is an ordered, caller-owned sequence of bars.
// ⭐ Indicator functions borrow the slices returned here and never mutate them.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Bars      []Bar     `json:"bars"`
}

// Len returns the number of bars
func (s *PriceSeries) Len() int {
	return len(s.Bars)
}

// Last returns the most recent bar, or the zero bar when empty
func (s *PriceSeries) Last() Bar {
	if len(s.Bars) == 0 {
		return Bar{}
	}
	return s.Bars[len(s.Bars)-1]
}

// Closes returns the close prices
func (s *PriceSeries) Closes() []float64 {
	return s.column(func(b Bar) float64 { return b.Close })
}

// Highs returns the high prices
func (s *PriceSeries) Highs() []float64 {
	return s.column(func(b Bar) float64 { return b.High })
}

// Lows returns the low prices
func (s *PriceSeries) Lows() []float64 {
	return s.column(func(b Bar) float64 { return b.Low })
}

// Volumes returns the traded volumes
func (s *PriceSeries) Volumes() []float64 {
	return s.column(func(b Bar) float64 { return b.Volume })
}

func (s *PriceSeries) column(pick func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = pick(b)
	}
	return out
}

// Validate checks ordering and price sanity.
func (s *PriceSeries) Validate() error {
	if len(s.Bars) == 0 {
		return fmt.Errorf("%w: no bars", ErrInvalidSeries)
	}

	for i, b := range s.Bars {
		for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				return fmt.Errorf("%w: bar %d has non-positive or non-finite price", ErrInvalidSeries, i)
			}
		}
		if math.IsNaN(b.Volume) || math.IsInf(b.Volume, 0) || b.Volume < 0 {
			return fmt.Errorf("%w: bar %d has invalid volume", ErrInvalidSeries, i)
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: bar %d high below low", ErrInvalidSeries, i)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("%w: timestamps not strictly increasing at bar %d", ErrInvalidSeries, i)
		}
	}
	return nil
}
