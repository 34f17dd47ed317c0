package indicators

import (
	"github.com/markcheno/go-talib"
)

// BollingerResult holds the bands plus %b and bandwidth, aligned to one suffix
type BollingerResult struct {
	Upper     []float64
	Middle    []float64
	Lower     []float64
	PercentB  []float64
	Bandwidth []float64
}

// Len returns the aligned output length
func (b BollingerResult) Len() int {
	return len(b.Middle)
}

// Bollinger computes SMA(period) ± k population standard deviations.
// %b = (x-lower)/(upper-lower) is left unclamped; a zero-width band yields 0.5.
// Warm-up: period.
func Bollinger(values []float64, period int, k float64) BollingerResult {
	if period < 1 || len(values) < period {
		return BollingerResult{}
	}

	middle := talib.Sma(values, period)[period-1:]
	std := talib.StdDev(values, period, 1.0)[period-1:]
	closes := values[period-1:]

	res := BollingerResult{
		Upper:     make([]float64, len(middle)),
		Middle:    middle,
		Lower:     make([]float64, len(middle)),
		PercentB:  make([]float64, len(middle)),
		Bandwidth: make([]float64, len(middle)),
	}
	for i, m := range middle {
		upper, lower := m+k*std[i], m-k*std[i]
		res.Upper[i], res.Lower[i] = upper, lower

		width := upper - lower
		if width <= 0 {
			res.PercentB[i] = 0.5
		} else {
			res.PercentB[i] = (closes[i] - lower) / width
		}
		if m != 0 {
			res.Bandwidth[i] = width / m
		}
	}
	return res
}
