// Package patterns recognises composite chart shapes from windowed extrema.
package patterns

import (
	"math"
	"sort"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/indicators"
)

// Type names a chart pattern
type Type string

const (
	DoubleTop               Type = "DOUBLE_TOP"
	DoubleBottom            Type = "DOUBLE_BOTTOM"
	HeadAndShoulders        Type = "HEAD_AND_SHOULDERS"
	InverseHeadAndShoulders Type = "INVERSE_HEAD_AND_SHOULDERS"
	AscendingTriangle       Type = "ASCENDING_TRIANGLE"
	DescendingTriangle      Type = "DESCENDING_TRIANGLE"
	SymmetricalTriangle     Type = "SYMMETRICAL_TRIANGLE"
)

// Heuristic thresholds. Changing them changes every downstream confidence.
const (
	doubleTolerance   = 0.02
	shoulderTolerance = 0.05
	flatnessThreshold = 0.001
	triangleLookback  = 5

	minConfidence = 0.3
	maxConfidence = 0.95
)

// Pattern is a detected chart shape spanning [Start, End] bar indices
type Pattern struct {
	Type       Type                `json:"type"`
	Bias       contracts.Direction `json:"bias"`
	Confidence float64             `json:"confidence"`
	Start      int                 `json:"start"`
	End        int                 `json:"end"`
	Level      float64             `json:"level"`
}

// Detect runs every recogniser over highs (peaks) and lows (troughs) and
// returns patterns ordered by End descending, then Confidence descending.
func Detect(highs, lows []float64, window int) []Pattern {
	peaks := indicators.FindExtrema(highs, window).Peaks
	troughs := indicators.FindExtrema(lows, window).Troughs

	var out []Pattern
	out = append(out, doubles(peaks, lows, window, true)...)
	out = append(out, doubles(troughs, highs, window, false)...)
	out = append(out, headAndShoulders(peaks, lows, false)...)
	out = append(out, headAndShoulders(troughs, highs, true)...)
	if tri, ok := triangle(peaks, troughs); ok {
		out = append(out, tri)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].End != out[j].End {
			return out[i].End > out[j].End
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// DetectSeries is Detect over a price series with the default window
func DetectSeries(series *contracts.PriceSeries) []Pattern {
	return Detect(series.Highs(), series.Lows(), indicators.DefaultExtremaWindow)
}

// doubles finds consecutive same-kind extrema within 2% of each other and at
// least one window apart. opposite supplies the neckline between them.
func doubles(points []indicators.Point, opposite []float64, window int, top bool) []Pattern {
	var out []Pattern
	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		if b.Index-a.Index < window {
			continue
		}
		diff := math.Abs(a.Value-b.Value) / math.Max(a.Value, b.Value)
		if diff > doubleTolerance {
			continue
		}

		p := Pattern{
			Confidence: clampConfidence(1 - diff/doubleTolerance),
			Start:      a.Index,
			End:        b.Index,
		}
		if top {
			p.Type, p.Bias = DoubleTop, contracts.DirectionSell
			p.Level = minBetween(opposite, a.Index, b.Index)
		} else {
			p.Type, p.Bias = DoubleBottom, contracts.DirectionBuy
			p.Level = maxBetween(opposite, a.Index, b.Index)
		}
		out = append(out, p)
	}
	return out
}

// headAndShoulders scans three consecutive extrema whose middle is the most
// extreme and whose shoulders sit within 5% of each other. inverse scans troughs.
func headAndShoulders(points []indicators.Point, opposite []float64, inverse bool) []Pattern {
	var out []Pattern
	for i := 0; i+2 < len(points); i++ {
		left, head, right := points[i], points[i+1], points[i+2]

		var prominence float64
		if inverse {
			if !(head.Value < left.Value && head.Value < right.Value) {
				continue
			}
			shoulder := math.Min(left.Value, right.Value)
			prominence = (shoulder - head.Value) / shoulder
		} else {
			if !(head.Value > left.Value && head.Value > right.Value) {
				continue
			}
			prominence = (head.Value - math.Max(left.Value, right.Value)) / head.Value
		}

		shoulderDiff := math.Abs(left.Value-right.Value) / math.Max(left.Value, right.Value)
		if shoulderDiff > shoulderTolerance {
			continue
		}

		symmetry := 1 - shoulderDiff/shoulderTolerance
		p := Pattern{
			Confidence: clampConfidence(0.5*symmetry + math.Min(prominence*10, 0.5)),
			Start:      left.Index,
			End:        right.Index,
		}
		if inverse {
			p.Type, p.Bias = InverseHeadAndShoulders, contracts.DirectionBuy
			p.Level = maxBetween(opposite, left.Index, right.Index)
		} else {
			p.Type, p.Bias = HeadAndShoulders, contracts.DirectionSell
			p.Level = minBetween(opposite, left.Index, right.Index)
		}
		out = append(out, p)
	}
	return out
}

// triangle fits least-squares lines through the most recent peaks and troughs.
// Slopes are per bar relative to the mean price of the fitted points.
func triangle(peaks, troughs []indicators.Point) (Pattern, bool) {
	highs := recent(peaks, triangleLookback)
	lows := recent(troughs, triangleLookback)
	if len(highs) < 2 || len(lows) < 2 {
		return Pattern{}, false
	}

	hx, hy := unzip(highs)
	lx, ly := unzip(lows)
	mean := (sum(hy) + sum(ly)) / float64(len(hy)+len(ly))
	if mean == 0 {
		return Pattern{}, false
	}
	highSlope := indicators.LinearSlope(hx, hy) / mean
	lowSlope := indicators.LinearSlope(lx, ly) / mean

	flatHighs := math.Abs(highSlope) < flatnessThreshold
	flatLows := math.Abs(lowSlope) < flatnessThreshold
	touches := float64(min(len(highs), len(lows)))

	p := Pattern{
		Start: min(highs[0].Index, lows[0].Index),
		End:   max(highs[len(highs)-1].Index, lows[len(lows)-1].Index),
	}
	switch {
	case flatHighs && lowSlope >= flatnessThreshold:
		p.Type, p.Bias = AscendingTriangle, contracts.DirectionBuy
		p.Confidence = clampConfidence(0.5 + 0.1*touches - 0.2*math.Abs(highSlope)/flatnessThreshold)
		p.Level = sum(hy) / float64(len(hy))
	case flatLows && highSlope <= -flatnessThreshold:
		p.Type, p.Bias = DescendingTriangle, contracts.DirectionSell
		p.Confidence = clampConfidence(0.5 + 0.1*touches - 0.2*math.Abs(lowSlope)/flatnessThreshold)
		p.Level = sum(ly) / float64(len(ly))
	case highSlope <= -flatnessThreshold && lowSlope >= flatnessThreshold:
		p.Type, p.Bias = SymmetricalTriangle, contracts.DirectionNeutral
		p.Confidence = clampConfidence(0.4 + 0.1*touches)
		p.Level = (hy[len(hy)-1] + ly[len(ly)-1]) / 2
	default:
		return Pattern{}, false
	}
	return p, true
}

func clampConfidence(v float64) float64 {
	return contracts.Clamp(v, minConfidence, maxConfidence)
}

func recent(points []indicators.Point, n int) []indicators.Point {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func unzip(points []indicators.Point) ([]float64, []float64) {
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = float64(p.Index), p.Value
	}
	return xs, ys
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func minBetween(values []float64, from, to int) float64 {
	m := math.Inf(1)
	for i := from; i <= to && i < len(values); i++ {
		m = math.Min(m, values[i])
	}
	return m
}

func maxBetween(values []float64, from, to int) float64 {
	m := math.Inf(-1)
	for i := from; i <= to && i < len(values); i++ {
		m = math.Max(m, values[i])
	}
	return m
}
