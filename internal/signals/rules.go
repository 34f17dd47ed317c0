package signals

import (
	"math"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/indicators"
	"github.com/wonny/tradegate/internal/patterns"
)

// Rule names, used as Signal.Source for per-indicator signals
const (
	RuleMovingAverage     = "ma_crossover"
	RuleRSI               = "rsi"
	RuleMACD              = "macd"
	RuleBollinger         = "bollinger"
	RuleStochastic        = "stochastic"
	RuleWilliamsR         = "williams_r"
	RuleCCI               = "cci"
	RuleVolume            = "volume"
	RuleSupportResistance = "support_resistance"
	RulePattern           = "chart_pattern"
)

// ruleConfidence is the confidence attached to every threshold rule
const ruleConfidence = 0.6

// Thresholds
const (
	maBand             = 0.01
	rsiOversold        = 30.0
	rsiOverbought      = 70.0
	stochOversold      = 20.0
	stochOverbought    = 80.0
	williamsOversold   = -80.0
	williamsOverbought = -20.0
	cciBand            = 100.0
	levelProximity     = 0.01
	patternRecency     = 20
)

func ruleSignal(rule string, dir contracts.Direction, strength float64, reason string) contracts.Signal {
	return contracts.NewSignal(rule, dir, strength, ruleConfidence, reason)
}

// MovingAverageRule compares the fast and slow averages with a ±1% band.
func MovingAverageRule(fast, slow float64) contracts.Signal {
	var s contracts.Signal
	switch {
	case fast > slow*(1+maBand):
		s = ruleSignal(RuleMovingAverage, contracts.DirectionBuy, 0.7, "fast average above slow band")
	case fast < slow*(1-maBand):
		s = ruleSignal(RuleMovingAverage, contracts.DirectionSell, 0.7, "fast average below slow band")
	default:
		s = ruleSignal(RuleMovingAverage, contracts.DirectionHold, 0.3, "averages within band")
	}
	return s.WithMeta("fast", fast).WithMeta("slow", slow)
}

// RSIRule maps oversold to BUY and overbought to SELL.
func RSIRule(rsi float64) contracts.Signal {
	var s contracts.Signal
	switch {
	case rsi < rsiOversold:
		s = ruleSignal(RuleRSI, contracts.DirectionBuy, 0.8, "oversold")
	case rsi > rsiOverbought:
		s = ruleSignal(RuleRSI, contracts.DirectionSell, 0.8, "overbought")
	default:
		s = ruleSignal(RuleRSI, contracts.DirectionHold, 0.4, "neutral zone")
	}
	return s.WithMeta("rsi", rsi)
}

// MACDRule scores a histogram sign change as a crossover and a steady sign as trend.
func MACDRule(prevHist, hist float64) contracts.Signal {
	var s contracts.Signal
	switch {
	case prevHist <= 0 && hist > 0:
		s = ruleSignal(RuleMACD, contracts.DirectionBuy, 0.8, "bullish crossover")
	case prevHist >= 0 && hist < 0:
		s = ruleSignal(RuleMACD, contracts.DirectionSell, 0.8, "bearish crossover")
	case hist > 0:
		s = ruleSignal(RuleMACD, contracts.DirectionBuy, 0.6, "line above signal")
	case hist < 0:
		s = ruleSignal(RuleMACD, contracts.DirectionSell, 0.6, "line below signal")
	default:
		s = ruleSignal(RuleMACD, contracts.DirectionHold, 0.3, "flat histogram")
	}
	return s.WithMeta("histogram", hist)
}

// BollingerRule reads %b: outside the bands is strong, the outer fifths are mild.
func BollingerRule(percentB float64) contracts.Signal {
	var s contracts.Signal
	switch {
	case percentB < 0:
		s = ruleSignal(RuleBollinger, contracts.DirectionBuy, 0.7, "close below lower band")
	case percentB > 1:
		s = ruleSignal(RuleBollinger, contracts.DirectionSell, 0.7, "close above upper band")
	case percentB < 0.2:
		s = ruleSignal(RuleBollinger, contracts.DirectionBuy, 0.5, "near lower band")
	case percentB > 0.8:
		s = ruleSignal(RuleBollinger, contracts.DirectionSell, 0.5, "near upper band")
	default:
		s = ruleSignal(RuleBollinger, contracts.DirectionHold, 0.3, "inside bands")
	}
	return s.WithMeta("percent_b", percentB)
}

// StochasticRule needs both %K and %D in the same extreme zone.
func StochasticRule(k, d float64) contracts.Signal {
	var s contracts.Signal
	switch {
	case k < stochOversold && d < stochOversold:
		s = ruleSignal(RuleStochastic, contracts.DirectionBuy, 0.6, "oversold")
	case k > stochOverbought && d > stochOverbought:
		s = ruleSignal(RuleStochastic, contracts.DirectionSell, 0.6, "overbought")
	default:
		s = ruleSignal(RuleStochastic, contracts.DirectionHold, 0.3, "neutral zone")
	}
	return s.WithMeta("k", k).WithMeta("d", d)
}

// WilliamsRule maps %R below -80 to BUY and above -20 to SELL.
func WilliamsRule(r float64) contracts.Signal {
	var s contracts.Signal
	switch {
	case r < williamsOversold:
		s = ruleSignal(RuleWilliamsR, contracts.DirectionBuy, 0.5, "oversold")
	case r > williamsOverbought:
		s = ruleSignal(RuleWilliamsR, contracts.DirectionSell, 0.5, "overbought")
	default:
		s = ruleSignal(RuleWilliamsR, contracts.DirectionHold, 0.2, "neutral zone")
	}
	return s.WithMeta("williams_r", r)
}

// CCIRule maps readings beyond ±100.
func CCIRule(cci float64) contracts.Signal {
	var s contracts.Signal
	switch {
	case cci < -cciBand:
		s = ruleSignal(RuleCCI, contracts.DirectionBuy, 0.6, "oversold")
	case cci > cciBand:
		s = ruleSignal(RuleCCI, contracts.DirectionSell, 0.6, "overbought")
	default:
		s = ruleSignal(RuleCCI, contracts.DirectionHold, 0.2, "neutral zone")
	}
	return s.WithMeta("cci", cci)
}

// VolumeRule follows price when participation is rising. priceChange is the
// fractional close change over the short volume window.
func VolumeRule(va indicators.VolumeAnalysis, priceChange float64) contracts.Signal {
	strength := 0.4
	if va.Unusual {
		strength += 0.2
	}

	var s contracts.Signal
	switch {
	case va.Trend == indicators.VolumeIncreasing && priceChange > 0:
		s = ruleSignal(RuleVolume, contracts.DirectionBuy, strength, "rising volume on advance")
	case va.Trend == indicators.VolumeIncreasing && priceChange < 0:
		s = ruleSignal(RuleVolume, contracts.DirectionSell, strength, "rising volume on decline")
	default:
		s = ruleSignal(RuleVolume, contracts.DirectionHold, 0.2, "no volume confirmation")
	}
	return s.WithMeta("volume_ratio", va.Ratio)
}

// SupportResistanceRule fires when the close sits within 1% above the strongest
// support or within 1% below the strongest resistance. ok is false without levels.
func SupportResistanceRule(close float64, levels indicators.Levels) (contracts.Signal, bool) {
	if len(levels.Support) == 0 && len(levels.Resistance) == 0 {
		return contracts.Signal{}, false
	}

	if len(levels.Support) > 0 {
		sup := levels.Support[0].Price
		if sup > 0 && close >= sup && (close-sup)/sup <= levelProximity {
			return ruleSignal(RuleSupportResistance, contracts.DirectionBuy, 0.5, "holding support").
				WithMeta("level", sup), true
		}
	}
	if len(levels.Resistance) > 0 {
		res := levels.Resistance[0].Price
		if res > 0 && close <= res && (res-close)/res <= levelProximity {
			return ruleSignal(RuleSupportResistance, contracts.DirectionSell, 0.5, "testing resistance").
				WithMeta("level", res), true
		}
	}
	return ruleSignal(RuleSupportResistance, contracts.DirectionHold, 0.2, "between levels"), true
}

// PatternRule picks the most confident pattern ending within the last 20 bars.
// lastIndex is the index of the latest bar. ok is false when none qualifies.
func PatternRule(found []patterns.Pattern, lastIndex int) (contracts.Signal, bool) {
	best := -1
	for i, p := range found {
		if lastIndex-p.End > patternRecency {
			continue
		}
		if best < 0 || p.Confidence > found[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return contracts.Signal{}, false
	}

	p := found[best]
	s := contracts.NewSignal(RulePattern, p.Bias.Bucket(), p.Confidence, p.Confidence, string(p.Type))
	return s.WithMeta("level", p.Level).WithMeta("bars_ago", float64(lastIndex-p.End)), true
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
