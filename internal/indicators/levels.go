package indicators

import (
	"math"
	"sort"
)

// Default level-detection parameters
const (
	DefaultExtremaWindow    = 5
	DefaultClusterTolerance = 0.02
)

// Point is one sample picked out of a series
type Point struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Extrema holds strict local maxima and minima in index order
type Extrema struct {
	Peaks   []Point
	Troughs []Point
}

// FindExtrema returns points strictly above (peaks) or below (troughs) every
// other sample within a symmetric window. Needs 2*window+1 samples.
func FindExtrema(values []float64, window int) Extrema {
	var ex Extrema
	if window < 1 || len(values) < 2*window+1 {
		return ex
	}

	for i := window; i < len(values)-window; i++ {
		isPeak, isTrough := true, true
		for j := i - window; j <= i+window && (isPeak || isTrough); j++ {
			if j == i {
				continue
			}
			if values[j] >= values[i] {
				isPeak = false
			}
			if values[j] <= values[i] {
				isTrough = false
			}
		}
		if isPeak {
			ex.Peaks = append(ex.Peaks, Point{Index: i, Value: values[i]})
		}
		if isTrough {
			ex.Troughs = append(ex.Troughs, Point{Index: i, Value: values[i]})
		}
	}
	return ex
}

// Level is a clustered price level
type Level struct {
	Price   float64 `json:"price"`
	Touches int     `json:"touches"`
}

// Levels holds ranked support and resistance, strongest first
type Levels struct {
	Support    []Level
	Resistance []Level
}

// SupportResistance clusters trough lows into support and peak highs into
// resistance. Series too short for windowed extrema fall back to the global
// low and high.
func SupportResistance(highs, lows []float64, window int, tolerance float64) Levels {
	n := minLen(highs, lows)
	if n == 0 {
		return Levels{}
	}
	if window < 1 || n < 2*window+1 {
		hi, lo := highs[0], lows[0]
		for i := 1; i < n; i++ {
			hi = math.Max(hi, highs[i])
			lo = math.Min(lo, lows[i])
		}
		return Levels{
			Support:    []Level{{Price: lo, Touches: 1}},
			Resistance: []Level{{Price: hi, Touches: 1}},
		}
	}

	return Levels{
		Support:    ClusterLevels(FindExtrema(lows[:n], window).Troughs, tolerance),
		Resistance: ClusterLevels(FindExtrema(highs[:n], window).Peaks, tolerance),
	}
}

// ClusterLevels groups points whose price lies within tolerance of the running
// cluster mean. Levels are ranked by touches descending, then price ascending.
func ClusterLevels(points []Point, tolerance float64) []Level {
	if len(points) == 0 {
		return nil
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Value
	}
	sort.Float64s(prices)

	var levels []Level
	sum, count := prices[0], 1
	flush := func() {
		levels = append(levels, Level{Price: sum / float64(count), Touches: count})
	}
	for _, p := range prices[1:] {
		mean := sum / float64(count)
		if mean != 0 && math.Abs(p-mean)/mean <= tolerance {
			sum += p
			count++
			continue
		}
		flush()
		sum, count = p, 1
	}
	flush()

	sort.SliceStable(levels, func(i, j int) bool {
		if levels[i].Touches != levels[j].Touches {
			return levels[i].Touches > levels[j].Touches
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}

// FibonacciRatios are the retracement ratios reported by Fibonacci
var FibonacciRatios = []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1}

// FibLevel is one retracement level
type FibLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// FibonacciResult describes the swing and its retracement levels
type FibonacciResult struct {
	High    float64    `json:"high"`
	Low     float64    `json:"low"`
	Uptrend bool       `json:"uptrend"`
	Levels  []FibLevel `json:"levels"`
}

// Fibonacci measures retracements over the whole series. When the high comes
// after the low the swing is an uptrend and levels are measured down from the
// high; otherwise they are measured up from the low. Needs two samples.
func Fibonacci(values []float64) *FibonacciResult {
	if len(values) < 2 {
		return nil
	}

	hiIdx, loIdx := 0, 0
	for i, v := range values {
		if v > values[hiIdx] {
			hiIdx = i
		}
		if v < values[loIdx] {
			loIdx = i
		}
	}

	res := &FibonacciResult{
		High:    values[hiIdx],
		Low:     values[loIdx],
		Uptrend: hiIdx > loIdx,
		Levels:  make([]FibLevel, len(FibonacciRatios)),
	}
	span := res.High - res.Low
	for i, r := range FibonacciRatios {
		price := res.Low + r*span
		if res.Uptrend {
			price = res.High - r*span
		}
		res.Levels[i] = FibLevel{Ratio: r, Price: price}
	}
	return res
}
