package contracts

import "time"

// VolatilityLevel classifies expected price variability
type VolatilityLevel string

const (
	VolatilityLow    VolatilityLevel = "LOW"
	VolatilityMedium VolatilityLevel = "MEDIUM"
	VolatilityHigh   VolatilityLevel = "HIGH"
)

// Multiplier scales stop distances: 0.7 / 1.0 / 1.5
func (v VolatilityLevel) Multiplier() float64 {
	switch v {
	case VolatilityLow:
		return 0.7
	case VolatilityHigh:
		return 1.5
	default:
		return 1.0
	}
}

// Annualized realized volatility thresholds
const (
	VolatilityLowBelow   = 0.25
	VolatilityMediumUpTo = 0.40
)

// ClassifyVolatility buckets annualized realized volatility:
// below 0.25 LOW, up to 0.40 MEDIUM, otherwise HIGH.
func ClassifyVolatility(annualized float64) VolatilityLevel {
	switch {
	case annualized < VolatilityLowBelow:
		return VolatilityLow
	case annualized <= VolatilityMediumUpTo:
		return VolatilityMedium
	default:
		return VolatilityHigh
	}
}

// Valid reports whether v is one of the known levels
func (v VolatilityLevel) Valid() bool {
	return v == VolatilityLow || v == VolatilityMedium || v == VolatilityHigh
}

// OrderType is the suggested execution style
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderNone   OrderType = "NONE"
)

// ExitPlan holds stop-loss and take-profit as fractional distances and absolute prices
type ExitPlan struct {
	StopLossDistance   float64 `json:"stop_loss_distance"`
	TakeProfitDistance float64 `json:"take_profit_distance"`
	StopLossPrice      float64 `json:"stop_loss_price"`
	TakeProfitPrice    float64 `json:"take_profit_price"`
}

// ComponentScore records how one source fed the combiner
type ComponentScore struct {
	Available    bool      `json:"available"`
	Direction    Direction `json:"direction"`
	Strength     float64   `json:"strength"`
	Confidence   float64   `json:"confidence"`
	Weight       float64   `json:"weight"`
	Contribution float64   `json:"contribution"`
	Note         string    `json:"note,omitempty"`
}

// Reasoning explains a composite decision
type Reasoning struct {
	Components   map[Source]ComponentScore `json:"components"`
	BuyScore     float64                   `json:"buy_score"`
	SellScore    float64                   `json:"sell_score"`
	HoldScore    float64                   `json:"hold_score"`
	UnusedWeight float64                   `json:"unused_weight"`
	Activation   float64                   `json:"activation"`
	Realized     float64                   `json:"realized_volatility"`
}

// CompositeSignal is the fused decision
// ⭐ Invariant: Exits is nil iff Direction == HOLD
type CompositeSignal struct {
	Symbol     string          `json:"symbol"`
	Timeframe  Timeframe       `json:"timeframe"`
	AsOf       time.Time       `json:"as_of"`
	Direction  Direction       `json:"direction"`
	Strength   float64         `json:"strength"`
	Confidence float64         `json:"confidence"`
	OrderType  OrderType       `json:"order_type"`
	Volatility VolatilityLevel `json:"volatility"`
	Exits      *ExitPlan       `json:"exits,omitempty"`
	Reasoning  Reasoning       `json:"reasoning"`
}

// SubConfidence returns a component's confidence, or 0 when it was unavailable
func (c *CompositeSignal) SubConfidence(src Source) float64 {
	comp, ok := c.Reasoning.Components[src]
	if !ok || !comp.Available {
		return 0
	}
	return comp.Confidence
}

// Decision pairs a composite signal with its risk verdict for publishing
type Decision struct {
	RunID       string           `json:"run_id,omitempty"`
	Symbol      string           `json:"symbol"`
	Signal      *CompositeSignal `json:"signal"`
	Assessment  *RiskAssessment  `json:"assessment"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}
