package risk

import (
	"math"
	"sort"

	"github.com/wonny/tradegate/internal/indicators"
)

// CalculateVaR computes historical VaR and CVaR from simple returns.
// Losses are reported as positive numbers; no loss in the tail yields 0.
func CalculateVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) == 0 {
		return VaRResult{Confidence: confidence}
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	// 95% VaR = 5th percentile of returns
	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	var varValue float64
	if sorted[idx] < 0 {
		varValue = -sorted[idx]
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        varValue,
		CVaR:       CalculateCVaR(sorted, idx),
	}
}

// CalculateCVaR averages the tail up to and including varIdx (expected shortfall).
// sorted must be ascending.
func CalculateCVaR(sorted []float64, varIdx int) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}

	var sum float64
	count := 0
	for i := 0; i <= varIdx && i < len(sorted); i++ {
		sum += sorted[i]
		count++
	}

	avgTailReturn := sum / float64(count)
	if avgTailReturn < 0 {
		return -avgTailReturn
	}
	return 0
}

// Mean returns the arithmetic mean, 0 for empty input
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// minCorrelationSamples is the shortest overlap accepted by CorrelationsFromSeries
const minCorrelationSamples = 10

// PearsonCorrelation of two equally long samples. Mismatched lengths,
// fewer than two points or zero variance yield 0.
func PearsonCorrelation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}

	ma, mb := Mean(a), Mean(b)
	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}

	if va == 0 || vb == 0 {
		return 0
	}
	r := cov / math.Sqrt(va*vb)
	return math.Max(-1, math.Min(1, r))
}

// CorrelationsFromSeries correlates the candidate's simple returns with each
// peer's, aligned on the most recent overlapping window. Peers with too short
// an overlap are omitted.
func CorrelationsFromSeries(candidate []float64, peers map[string][]float64) map[string]float64 {
	base := indicators.Returns(candidate)
	out := make(map[string]float64, len(peers))

	for symbol, closes := range peers {
		peer := indicators.Returns(closes)
		n := len(base)
		if len(peer) < n {
			n = len(peer)
		}
		if n < minCorrelationSamples {
			continue
		}
		out[symbol] = PearsonCorrelation(base[len(base)-n:], peer[len(peer)-n:])
	}

	return out
}
