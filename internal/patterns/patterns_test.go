package patterns

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradegate/internal/contracts"
)

func shift(values []float64, delta float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + delta
	}
	return out
}

func mirror(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = 20 - v
	}
	return out
}

func find(patterns []Pattern, typ Type) (Pattern, bool) {
	for _, p := range patterns {
		if p.Type == typ {
			return p, true
		}
	}
	return Pattern{}, false
}

func TestDetect_DoubleTop(t *testing.T) {
	highs := []float64{1, 2, 3, 10, 3, 2, 1, 2, 3, 10.1, 3, 2, 1}
	lows := shift(highs, -0.5)

	got := Detect(highs, lows, 2)
	require.Len(t, got, 1)

	p := got[0]
	assert.Equal(t, DoubleTop, p.Type)
	assert.Equal(t, contracts.DirectionSell, p.Bias)
	assert.Equal(t, 3, p.Start)
	assert.Equal(t, 9, p.End)
	assert.InDelta(t, 1-(0.1/10.1)/0.02, p.Confidence, 1e-9)
	assert.InDelta(t, 0.5, p.Level, 1e-9)
}

func TestDetect_DoubleTopOutsideTolerance(t *testing.T) {
	highs := []float64{1, 2, 3, 10, 3, 2, 1, 2, 3, 10.5, 3, 2, 1}
	got := Detect(highs, shift(highs, -0.5), 2)
	_, ok := find(got, DoubleTop)
	assert.False(t, ok)
}

func TestDetect_HeadAndShoulders(t *testing.T) {
	highs := []float64{1, 2, 5, 2, 1, 2, 8, 2, 1, 2, 5.1, 2, 1}
	lows := shift(highs, -0.5)

	got := Detect(highs, lows, 2)
	p, ok := find(got, HeadAndShoulders)
	require.True(t, ok)

	symmetry := 1 - (0.1/5.1)/0.05
	assert.InDelta(t, 0.5*symmetry+0.5, p.Confidence, 1e-9)
	assert.Equal(t, contracts.DirectionSell, p.Bias)
	assert.Equal(t, 2, p.Start)
	assert.Equal(t, 10, p.End)
	assert.InDelta(t, 0.5, p.Level, 1e-9)
	assert.Equal(t, HeadAndShoulders, got[0].Type, "latest pattern sorts first")

	bottom, ok := find(got, DoubleBottom)
	require.True(t, ok)
	assert.Equal(t, 0.95, bottom.Confidence)
}

func TestDetect_InverseHeadAndShoulders(t *testing.T) {
	lows := []float64{10, 9, 6, 9, 10, 9, 3, 9, 10, 9, 5.9, 9, 10}
	highs := shift(lows, 0.5)

	p, ok := find(Detect(highs, lows, 2), InverseHeadAndShoulders)
	require.True(t, ok)

	symmetry := 1 - (0.1/6.0)/0.05
	assert.InDelta(t, 0.5*symmetry+0.5, p.Confidence, 1e-9)
	assert.Equal(t, contracts.DirectionBuy, p.Bias)
	assert.InDelta(t, 10.5, p.Level, 1e-9)
}

var (
	triangleHighs = []float64{8, 9, 10, 9, 8, 9, 10, 9, 8.5, 9, 10, 9.5, 9, 9.5, 10, 9.5, 9.2}
	triangleLows  = []float64{7, 6.5, 7, 6, 5, 6, 7, 6.5, 6, 6.5, 7.5, 7.2, 7, 7.5, 8, 7.8, 7.6}
)

func TestDetect_AscendingTriangle(t *testing.T) {
	got := Detect(triangleHighs, triangleLows, 2)

	p, ok := find(got, AscendingTriangle)
	require.True(t, ok)
	assert.Equal(t, contracts.DirectionBuy, p.Bias)
	assert.InDelta(t, 0.8, p.Confidence, 1e-9)
	assert.InDelta(t, 10.0, p.Level, 1e-9)
	assert.Equal(t, 2, p.Start)
	assert.Equal(t, 14, p.End)

	require.NotEmpty(t, got)
	assert.Equal(t, 14, got[0].End)
	assert.Equal(t, DoubleTop, got[0].Type, "ties on End break by confidence")
}

func TestDetect_DescendingTriangle(t *testing.T) {
	got := Detect(mirror(triangleLows), mirror(triangleHighs), 2)

	p, ok := find(got, DescendingTriangle)
	require.True(t, ok)
	assert.Equal(t, contracts.DirectionSell, p.Bias)
	assert.InDelta(t, 0.8, p.Confidence, 1e-9)
	assert.InDelta(t, 10.0, p.Level, 1e-9)
}

// Peaks at 2, 6, 10 fall by 2 while troughs at 4, 8, 12 rise by 2
var (
	convergingHighs = []float64{15, 17, 20, 17, 15, 16, 18, 16, 15, 15.5, 16, 15.5, 15, 15.2, 15.1}
	convergingLows  = []float64{13, 12, 14, 12, 10, 12, 14, 13, 12, 13, 14.5, 14.5, 14, 14.3, 14.4}
)

func TestDetect_SymmetricalTriangle(t *testing.T) {
	got := Detect(convergingHighs, convergingLows, 2)
	require.Len(t, got, 1)

	p := got[0]
	assert.Equal(t, SymmetricalTriangle, p.Type)
	assert.Equal(t, contracts.DirectionNeutral, p.Bias)
	assert.InDelta(t, 0.4+0.1*3, p.Confidence, 1e-9)
	assert.InDelta(t, (16.0+14.0)/2, p.Level, 1e-9, "midpoint of the last peak and trough")
	assert.Equal(t, 2, p.Start)
	assert.Equal(t, 12, p.End)
}

func TestDetect_ShortSeries(t *testing.T) {
	assert.Empty(t, Detect([]float64{1, 2, 3}, []float64{0.5, 1.5, 2.5}, 5))
}

func TestDetect_ConfidenceAlwaysClamped(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 20; run++ {
		highs := make([]float64, 300)
		lows := make([]float64, 300)
		price := 100.0
		for i := range highs {
			price *= 1 + (rng.Float64()-0.5)*0.03
			highs[i] = price * 1.005
			lows[i] = price * 0.995
		}

		for _, p := range Detect(highs, lows, 5) {
			assert.GreaterOrEqual(t, p.Confidence, 0.3)
			assert.LessOrEqual(t, p.Confidence, 0.95)
			assert.LessOrEqual(t, p.Start, p.End)
		}
	}
}
