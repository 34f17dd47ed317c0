package providers

import (
	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/indicators"
	"github.com/wonny/tradegate/internal/signals"
)

// Feature names handed to prediction providers
const (
	FeatureRSI        = "rsi"
	FeatureMACDHist   = "macd_hist"
	FeaturePercentB   = "percent_b"
	FeatureReturn5    = "return_5"
	FeatureReturn20   = "return_20"
	FeatureVolatility = "volatility"
	FeatureSMARatio   = "sma_ratio"
	FeatureTrendSlope = "trend_slope"
)

const featureWindow = 20

// BuildFeatures assembles the prediction feature vector from the series and
// the technical verdict. Features that cannot be computed are omitted.
func BuildFeatures(series *contracts.PriceSeries, technical signals.Verdict) contracts.Features {
	f := contracts.Features{}

	for _, key := range []string{FeatureRSI, FeatureMACDHist, FeaturePercentB} {
		if v, ok := technical.Values[key]; ok {
			f[key] = v
		}
	}
	if fast, ok := technical.Values["sma_fast"]; ok {
		if slow, ok := technical.Values["sma_slow"]; ok && slow > 0 {
			f[FeatureSMARatio] = fast / slow
		}
	}

	if series == nil {
		return f
	}
	closes := series.Closes()
	n := len(closes)

	if r, ok := trailingReturn(closes, 5); ok {
		f[FeatureReturn5] = r
	}
	if r, ok := trailingReturn(closes, featureWindow); ok {
		f[FeatureReturn20] = r
	}
	if vol, ok := indicators.RealizedVolatility(closes, featureWindow, series.Timeframe.BarsPerYear()); ok {
		f[FeatureVolatility] = vol
	}

	if n >= 2 {
		window := closes
		if n > featureWindow {
			window = closes[n-featureWindow:]
		}
		xs := make([]float64, len(window))
		var sum float64
		for i, c := range window {
			xs[i] = float64(i)
			sum += c
		}
		if mean := sum / float64(len(window)); mean > 0 {
			f[FeatureTrendSlope] = indicators.LinearSlope(xs, window) / mean
		}
	}

	return f
}

func trailingReturn(closes []float64, k int) (float64, bool) {
	n := len(closes)
	if n <= k || closes[n-1-k] == 0 {
		return 0, false
	}
	return closes[n-1]/closes[n-1-k] - 1, true
}
