package indicators

import "math"

// Returns converts prices into simple period returns. Needs two samples.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// RealizedVolatility annualises the population standard deviation of the last
// window simple returns. ok is false when fewer than window+1 prices exist.
func RealizedVolatility(closes []float64, window int, barsPerYear float64) (vol float64, ok bool) {
	if window < 2 || len(closes) < window+1 {
		return 0, false
	}

	rets := Returns(closes[len(closes)-window-1:])
	mean := average(rets)
	var ss float64
	for _, r := range rets {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss/float64(len(rets))) * math.Sqrt(barsPerYear), true
}

// LinearSlope is the least-squares slope of ys against xs. Degenerate input yields 0.
func LinearSlope(xs, ys []float64) float64 {
	n := minLen(xs, ys)
	if n < 2 {
		return 0
	}

	mx, my := average(xs[:n]), average(ys[:n])
	var num, den float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		num += dx * (ys[i] - my)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}
