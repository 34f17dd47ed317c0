package indicators

import (
	"github.com/markcheno/go-talib"
)

// SMA is the trailing simple moving average. Warm-up: period.
func SMA(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return nil
	}
	return talib.Sma(values, period)[period-1:]
}

// EMA is the exponential moving average with multiplier 2/(period+1), seeded
// with the first raw value. The recursion runs over the whole input; the first
// period-1 outputs are dropped so the result follows the suffix alignment.
func EMA(values []float64, period int) []float64 {
	if period < 1 || len(values) < period {
		return nil
	}

	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, 0, len(values)-period+1)

	ema := values[0]
	if period == 1 {
		out = append(out, ema)
	}
	for i := 1; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
		if i >= period-1 {
			out = append(out, ema)
		}
	}
	return out
}

// MACDResult holds the MACD line, its signal line and the histogram, all aligned
// to the same suffix.
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// Len returns the aligned output length
func (m MACDResult) Len() int {
	return len(m.Histogram)
}

// Default MACD periods
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
)

// MACD computes EMA(fast)-EMA(slow) and an EMA(signal) of that line.
// Warm-up: slow+signal-1.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	if fast < 1 || slow <= fast || signal < 1 || len(values) < slow+signal-1 {
		return MACDResult{}
	}

	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	offset := slow - fast

	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}

	sig := EMA(line, signal)
	trimmed := line[signal-1:]
	hist := make([]float64, len(sig))
	for i := range sig {
		hist[i] = trimmed[i] - sig[i]
	}

	return MACDResult{Line: trimmed, Signal: sig, Histogram: hist}
}
