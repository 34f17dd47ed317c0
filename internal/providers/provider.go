// Package providers adapts sentiment and prediction collaborators to the
// shared Signal contract. Any implementation (HTTP, statistical, fixed) is
// interchangeable behind the two interfaces.
package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wonny/tradegate/internal/contracts"
)

// ErrProviderUnavailable marks a collaborator that could not produce a reading
var ErrProviderUnavailable = errors.New("provider unavailable")

// sentimentDeadband is the |score| below which sentiment is a HOLD
const sentimentDeadband = 0.1

// holdSentimentStrength is the strength of an in-band sentiment reading
const holdSentimentStrength = 0.5

// SentimentProvider scores market sentiment for a symbol
type SentimentProvider interface {
	Name() string
	Sentiment(ctx context.Context, symbol string) (contracts.SentimentReading, error)
}

// PredictionProvider forecasts direction and volatility from features
type PredictionProvider interface {
	Name() string
	Predict(ctx context.Context, features contracts.Features, symbol string) (contracts.Prediction, error)
}

// SentimentSignal maps a reading to a Signal. Out-of-range readings are rejected.
func SentimentSignal(r contracts.SentimentReading) (contracts.Signal, error) {
	if math.IsNaN(r.Score) || r.Score < -1 || r.Score > 1 {
		return contracts.Signal{}, fmt.Errorf("%w: sentiment score %v outside [-1,1]", ErrProviderUnavailable, r.Score)
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return contracts.Signal{}, fmt.Errorf("%w: sentiment confidence %v outside [0,1]", ErrProviderUnavailable, r.Confidence)
	}

	src := string(contracts.SourceSentiment)
	var sig contracts.Signal
	switch {
	case r.Score > sentimentDeadband:
		sig = contracts.NewSignal(src, contracts.DirectionBuy, math.Abs(r.Score), r.Confidence, "positive sentiment")
	case r.Score < -sentimentDeadband:
		sig = contracts.NewSignal(src, contracts.DirectionSell, math.Abs(r.Score), r.Confidence, "negative sentiment")
	default:
		sig = contracts.NewSignal(src, contracts.DirectionHold, holdSentimentStrength, r.Confidence, "neutral sentiment")
	}
	return sig.WithMeta("score", r.Score), nil
}

// PredictionSignal maps a prediction to a Signal. Strength equals confidence.
func PredictionSignal(p contracts.Prediction) (contracts.Signal, error) {
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		return contracts.Signal{}, fmt.Errorf("%w: prediction confidence %v outside [0,1]", ErrProviderUnavailable, p.Confidence)
	}
	if p.Volatility != "" && !p.Volatility.Valid() {
		return contracts.Signal{}, fmt.Errorf("%w: unknown volatility level %q", ErrProviderUnavailable, p.Volatility)
	}

	dir := normalizeDirection(string(p.Direction))
	return contracts.NewSignal(string(contracts.SourcePrediction), dir, p.Confidence, p.Confidence,
		"predicted "+strings.ToLower(string(dir))), nil
}

func normalizeDirection(raw string) contracts.Direction {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "BUY", "UP", "LONG":
		return contracts.DirectionBuy
	case "SELL", "DOWN", "SHORT":
		return contracts.DirectionSell
	default:
		return contracts.DirectionHold
	}
}

// StaticSentiment returns a fixed reading. Useful for replays and tests.
type StaticSentiment struct {
	Reading contracts.SentimentReading
}

func (s StaticSentiment) Name() string { return "static" }

func (s StaticSentiment) Sentiment(_ context.Context, _ string) (contracts.SentimentReading, error) {
	return s.Reading, nil
}
