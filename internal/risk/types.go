package risk

import "github.com/wonny/tradegate/internal/contracts"

// VaRResult is a historical VaR/CVaR estimate
// ⭐ SSOT: losses are positive (VaR=0.05 means a 5% loss at the given confidence)
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// MarketConditions describes the environment around a candidate trade
type MarketConditions struct {
	Sector string `json:"sector,omitempty"`

	// RealizedVolatility is annualized; 0 when unknown
	RealizedVolatility float64 `json:"realized_volatility"`

	ScheduledEvents []string `json:"scheduled_events,omitempty"`
	LowLiquidity    bool     `json:"low_liquidity"`

	// Correlations maps held symbols to their return correlation with the candidate
	Correlations map[string]float64 `json:"correlations,omitempty"`

	// Returns of the candidate, used for the VaR condition
	Returns []float64 `json:"-"`
}

// Input is everything the risk evaluator needs for one decision
type Input struct {
	Symbol   string
	Signal   *contracts.CompositeSignal
	Snapshot *contracts.PortfolioSnapshot
	Market   MarketConditions
}

const (
	// quality weights: composite, technical, sentiment, prediction
	qualityComposite  = 0.4
	qualityTechnical  = 0.3
	qualitySentiment  = 0.2
	qualityPrediction = 0.1

	volMediumThreshold = 0.25
	volHighThreshold   = 0.40
	minVolFactor       = 0.3

	minVaRSamples = 30
	varConfidence = 0.95
)

var levelSizeFactor = map[contracts.RiskLevel]float64{
	contracts.RiskLow:    1.0,
	contracts.RiskMedium: 0.7,
	contracts.RiskHigh:   0.5,
}
