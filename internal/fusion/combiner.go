// Package fusion combines technical, sentiment and prediction signals into
// a single weighted decision with exit levels.
package fusion

import (
	"fmt"
	"time"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/riskconfig"
)

const (
	// unavailableHoldShare of a missing source's weight is credited to HOLD
	unavailableHoldShare = 0.5

	minConfidence     = 0.1
	maxConfidence     = 0.95
	holdConfidenceMin = 0.3

	// marketOrderConfidence is the confidence above which a MARKET order is suggested
	marketOrderConfidence = 0.8
)

// Component is one source's input to the combiner
type Component struct {
	Signal    contracts.Signal
	Available bool
	Note      string
}

// Missing marks a source as unavailable with a reason
func Missing(note string) Component {
	return Component{Note: note}
}

// Present wraps an available signal
func Present(sig contracts.Signal) Component {
	return Component{Signal: sig, Available: true}
}

// Input carries the three sources plus market context for exits
type Input struct {
	Symbol    string
	Timeframe contracts.Timeframe
	AsOf      time.Time
	LastClose float64

	Technical  Component
	Sentiment  Component
	Prediction Component

	// PredictedVolatility is used when the prediction source is available
	PredictedVolatility contracts.VolatilityLevel

	// RealizedVolatility is annualized; consulted only when RealizedKnown
	RealizedVolatility float64
	RealizedKnown      bool
}

// Combiner fuses source signals by weight
// ⭐ SSOT: the only place where BUY/SELL/HOLD scores are combined
type Combiner struct {
	weights    riskconfig.Weights
	activation float64
	stopLoss   float64
	rewardRisk float64
}

// NewCombiner takes weights, activation and exit parameters from a validated config
func NewCombiner(cfg *riskconfig.Config) *Combiner {
	return &Combiner{
		weights:    cfg.Weights,
		activation: cfg.ActivationThreshold,
		stopLoss:   cfg.StopLossPercentage,
		rewardRisk: cfg.RewardRiskRatio,
	}
}

// Combine produces the composite decision. It is pure and deterministic.
func (c *Combiner) Combine(in Input) contracts.CompositeSignal {
	reasoning := contracts.Reasoning{
		Components: make(map[contracts.Source]contracts.ComponentScore, 3),
		Activation: c.activation,
		Realized:   in.RealizedVolatility,
	}

	scores := map[contracts.Direction]float64{}
	c.accumulate(&reasoning, scores, contracts.SourceTechnical, in.Technical, c.weights.Technical)
	c.accumulate(&reasoning, scores, contracts.SourceSentiment, in.Sentiment, c.weights.Sentiment)
	c.accumulate(&reasoning, scores, contracts.SourcePrediction, in.Prediction, c.weights.Prediction)

	buy := scores[contracts.DirectionBuy]
	sell := scores[contracts.DirectionSell]
	hold := scores[contracts.DirectionHold]
	reasoning.BuyScore, reasoning.SellScore, reasoning.HoldScore = buy, sell, hold

	out := contracts.CompositeSignal{
		Symbol:     in.Symbol,
		Timeframe:  in.Timeframe,
		AsOf:       in.AsOf,
		Volatility: c.volatility(in),
		Reasoning:  reasoning,
	}

	switch {
	case buy > sell && buy > hold && buy > c.activation:
		out.Direction = contracts.DirectionBuy
		out.Strength = contracts.Clamp01(buy)
		out.Confidence = contracts.Clamp(buy, minConfidence, maxConfidence)
	case sell > buy && sell > hold && sell > c.activation:
		out.Direction = contracts.DirectionSell
		out.Strength = contracts.Clamp01(sell)
		out.Confidence = contracts.Clamp(sell, minConfidence, maxConfidence)
	default:
		out.Direction = contracts.DirectionHold
		out.Strength = contracts.Clamp01(hold)
		h := hold
		if h < holdConfidenceMin {
			h = holdConfidenceMin
		}
		out.Confidence = contracts.Clamp(h, minConfidence, maxConfidence)
	}

	if out.Direction == contracts.DirectionHold {
		out.OrderType = contracts.OrderNone
		return out
	}

	out.OrderType = contracts.OrderLimit
	if out.Confidence > marketOrderConfidence {
		out.OrderType = contracts.OrderMarket
	}
	out.Exits = c.exits(out.Direction, out.Volatility, in.LastClose)
	return out
}

func (c *Combiner) accumulate(r *contracts.Reasoning, scores map[contracts.Direction]float64, src contracts.Source, comp Component, weight float64) {
	score := contracts.ComponentScore{
		Available: comp.Available,
		Weight:    weight,
		Note:      comp.Note,
	}

	if !comp.Available {
		score.Direction = contracts.DirectionHold
		score.Contribution = weight * unavailableHoldShare
		scores[contracts.DirectionHold] += score.Contribution
		r.UnusedWeight += weight
		r.Components[src] = score
		return
	}

	bucket := comp.Signal.Direction.Bucket()
	score.Direction = comp.Signal.Direction
	score.Strength = comp.Signal.Strength
	score.Confidence = comp.Signal.Confidence
	score.Contribution = comp.Signal.Strength * weight * comp.Signal.Confidence
	if score.Note == "" {
		score.Note = comp.Signal.Reason
	}
	scores[bucket] += score.Contribution
	r.Components[src] = score
}

func (c *Combiner) volatility(in Input) contracts.VolatilityLevel {
	if in.Prediction.Available && in.PredictedVolatility.Valid() {
		return in.PredictedVolatility
	}
	if in.RealizedKnown {
		return contracts.ClassifyVolatility(in.RealizedVolatility)
	}
	return contracts.VolatilityMedium
}

// exits derives stop-loss and take-profit from the volatility-scaled stop distance
func (c *Combiner) exits(dir contracts.Direction, vol contracts.VolatilityLevel, lastClose float64) *contracts.ExitPlan {
	stop := c.stopLoss * vol.Multiplier()
	take := stop * c.rewardRisk

	plan := &contracts.ExitPlan{
		StopLossDistance:   stop,
		TakeProfitDistance: take,
	}
	if lastClose > 0 {
		if dir == contracts.DirectionBuy {
			plan.StopLossPrice = lastClose * (1 - stop)
			plan.TakeProfitPrice = lastClose * (1 + take)
		} else {
			plan.StopLossPrice = lastClose * (1 + stop)
			plan.TakeProfitPrice = lastClose * (1 - take)
		}
	}
	return plan
}

// Describe renders a one-line summary of the decision
func Describe(sig contracts.CompositeSignal) string {
	return fmt.Sprintf("%s %s strength=%.2f confidence=%.2f buy=%.3f sell=%.3f hold=%.3f",
		sig.Symbol, sig.Direction, sig.Strength, sig.Confidence,
		sig.Reasoning.BuyScore, sig.Reasoning.SellScore, sig.Reasoning.HoldScore)
}
