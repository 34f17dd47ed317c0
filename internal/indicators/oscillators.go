package indicators

import "math"

// RSI is the Relative Strength Index with Wilder smoothing. The first average
// gain and loss are plain means of the first period changes. A zero average
// loss yields 100. Warm-up: period+1.
func RSI(values []float64, period int) []float64 {
	if period < 1 || len(values) < period+1 {
		return nil
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	p := float64(period)
	avgGain, avgLoss := gain/p, loss/p

	out := make([]float64, 0, len(values)-period)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		g, l := 0.0, 0.0
		if change > 0 {
			g = change
		} else {
			l = -change
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// StochasticResult holds %K and %D aligned to the same suffix
type StochasticResult struct {
	K []float64
	D []float64
}

// Stochastic computes %K over kPeriod and %D as an SMA(dPeriod) of %K.
// A flat range yields %K = 50. Warm-up: kPeriod+dPeriod-1.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochasticResult {
	n := minLen(highs, lows, closes)
	if kPeriod < 1 || dPeriod < 1 || n < kPeriod+dPeriod-1 {
		return StochasticResult{}
	}

	k := make([]float64, 0, n-kPeriod+1)
	for i := kPeriod - 1; i < n; i++ {
		hh, ll := windowRange(highs, lows, i-kPeriod+1, i)
		if hh == ll {
			k = append(k, 50)
			continue
		}
		k = append(k, (closes[i]-ll)/(hh-ll)*100)
	}

	d := SMA(k, dPeriod)
	return StochasticResult{K: k[dPeriod-1:], D: d}
}

// WilliamsR is Williams %R in [-100, 0]. A flat range yields -50. Warm-up: period.
func WilliamsR(highs, lows, closes []float64, period int) []float64 {
	n := minLen(highs, lows, closes)
	if period < 1 || n < period {
		return nil
	}

	out := make([]float64, 0, n-period+1)
	for i := period - 1; i < n; i++ {
		hh, ll := windowRange(highs, lows, i-period+1, i)
		if hh == ll {
			out = append(out, -50)
			continue
		}
		out = append(out, (hh-closes[i])/(hh-ll)*-100)
	}
	return out
}

// cciConstant scales CCI so roughly 70-80% of values fall within ±100
const cciConstant = 0.015

// CCI is the Commodity Channel Index over typical price. A zero mean deviation
// yields 0. Warm-up: period.
func CCI(highs, lows, closes []float64, period int) []float64 {
	n := minLen(highs, lows, closes)
	if period < 1 || n < period {
		return nil
	}

	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}

	out := make([]float64, 0, n-period+1)
	for i := period - 1; i < n; i++ {
		window := tp[i-period+1 : i+1]
		mean := average(window)
		var dev float64
		for _, v := range window {
			dev += math.Abs(v - mean)
		}
		dev /= float64(period)
		if dev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (tp[i]-mean)/(cciConstant*dev))
	}
	return out
}

// ATR is the Wilder-smoothed average true range. Warm-up: period+1.
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := minLen(highs, lows, closes)
	if period < 1 || n < period+1 {
		return nil
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
	}

	p := float64(period)
	atr := average(tr[1 : period+1])
	out := make([]float64, 0, n-period)
	out = append(out, atr)
	for i := period + 1; i < n; i++ {
		atr = (atr*(p-1) + tr[i]) / p
		out = append(out, atr)
	}
	return out
}

func windowRange(highs, lows []float64, from, to int) (float64, float64) {
	hh, ll := highs[from], lows[from]
	for j := from + 1; j <= to; j++ {
		if highs[j] > hh {
			hh = highs[j]
		}
		if lows[j] < ll {
			ll = lows[j]
		}
	}
	return hh, ll
}

func minLen(series ...[]float64) int {
	if len(series) == 0 {
		return 0
	}
	n := len(series[0])
	for _, s := range series[1:] {
		if len(s) < n {
			n = len(s)
		}
	}
	return n
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
