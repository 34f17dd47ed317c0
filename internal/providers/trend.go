package providers

import (
	"context"
	"fmt"
	"math"

	"github.com/wonny/tradegate/internal/contracts"
)

const (
	// trendSlopeFloor is the per-bar normalized slope below which the trend is flat
	trendSlopeFloor = 0.001
	// trendSlopeScale maps slope magnitude onto the confidence range
	trendSlopeScale = 0.01

	trendMinConfidence  = 0.5
	trendMaxConfidence  = 0.9
	trendHighVolPenalty = 0.8
)

// TrendPredictor is a statistical predictor: the sign of the normalized
// regression slope sets the direction and realized volatility sets the level.
type TrendPredictor struct{}

func (TrendPredictor) Name() string { return "trend" }

// Predict needs the trend_slope and volatility features.
func (TrendPredictor) Predict(_ context.Context, features contracts.Features, _ string) (contracts.Prediction, error) {
	slope, ok := features[FeatureTrendSlope]
	if !ok || math.IsNaN(slope) {
		return contracts.Prediction{}, fmt.Errorf("%w: missing %s feature", ErrProviderUnavailable, FeatureTrendSlope)
	}
	vol, ok := features[FeatureVolatility]
	if !ok || math.IsNaN(vol) {
		return contracts.Prediction{}, fmt.Errorf("%w: missing %s feature", ErrProviderUnavailable, FeatureVolatility)
	}

	level := contracts.ClassifyVolatility(vol)

	dir := contracts.DirectionHold
	confidence := trendMinConfidence
	if math.Abs(slope) > trendSlopeFloor {
		dir = contracts.DirectionBuy
		if slope < 0 {
			dir = contracts.DirectionSell
		}
		confidence = contracts.Clamp(trendMinConfidence+math.Abs(slope)/trendSlopeScale, trendMinConfidence, trendMaxConfidence)
	}
	if level == contracts.VolatilityHigh {
		confidence *= trendHighVolPenalty
	}

	return contracts.Prediction{
		Direction:  dir,
		Confidence: confidence,
		Volatility: level,
	}, nil
}
