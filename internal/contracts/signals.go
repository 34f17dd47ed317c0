package contracts

import "math"

// Direction is a directional call
type Direction string

const (
	DirectionBuy     Direction = "BUY"
	DirectionSell    Direction = "SELL"
	DirectionHold    Direction = "HOLD"
	DirectionNeutral Direction = "NEUTRAL"
)

// Bucket folds NEUTRAL into HOLD for scoring.
func (d Direction) Bucket() Direction {
	switch d {
	case DirectionBuy, DirectionSell:
		return d
	default:
		return DirectionHold
	}
}

// IsActionable reports whether the direction calls for a trade
func (d Direction) IsActionable() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Source names a signal producer
type Source string

const (
	SourceTechnical  Source = "technical"
	SourceSentiment  Source = "sentiment"
	SourcePrediction Source = "prediction"
)

// Signal is an immutable directional verdict with strength and confidence in [0,1]
// ⭐ SSOT: shared by the technical generator and the collaborator adapters
type Signal struct {
	Source     string             `json:"source"`
	Direction  Direction          `json:"direction"`
	Strength   float64            `json:"strength"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason,omitempty"`
	Metadata   map[string]float64 `json:"metadata,omitempty"`
}

// NewSignal builds a signal with strength and confidence clamped into [0,1].
func NewSignal(source string, dir Direction, strength, confidence float64, reason string) Signal {
	return Signal{
		Source:     source,
		Direction:  dir,
		Strength:   Clamp01(strength),
		Confidence: Clamp01(confidence),
		Reason:     reason,
	}
}

// WithMeta returns a copy carrying an extra metadata value
func (s Signal) WithMeta(key string, value float64) Signal {
	meta := make(map[string]float64, len(s.Metadata)+1)
	for k, v := range s.Metadata {
		meta[k] = v
	}
	meta[key] = value
	s.Metadata = meta
	return s
}

// Clamp01 bounds v into [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp bounds v into [lo,hi]. NaN becomes lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
