package contracts

// RiskLevel is an ordered risk classification
type RiskLevel string

const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskExtreme RiskLevel = "EXTREME"
)

var riskOrder = map[RiskLevel]int{
	RiskLow:     0,
	RiskMedium:  1,
	RiskHigh:    2,
	RiskExtreme: 3,
}

var riskByRank = [...]RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskExtreme}

// Rank returns the ordinal of the level
func (r RiskLevel) Rank() int {
	return riskOrder[r]
}

// Escalate moves one level up, saturating at EXTREME
func (r RiskLevel) Escalate() RiskLevel {
	rank := r.Rank() + 1
	if rank >= len(riskByRank) {
		rank = len(riskByRank) - 1
	}
	return riskByRank[rank]
}

// Max returns the more severe of two levels
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.Rank() > r.Rank() {
		return other
	}
	return r
}

// Gate names a risk evaluation stage
type Gate string

const (
	GateActionable    Gate = "ACTIONABLE"
	GateSymbol        Gate = "SYMBOL_ALLOWED"
	GateMarket        Gate = "MARKET_CONDITIONS_OK"
	GateExposure      Gate = "EXPOSURE_OK"
	GateSignalQuality Gate = "SIGNAL_QUALITY_OK"
	GatePositionSize  Gate = "POSITION_SIZE"
	GateCorrelation   Gate = "CORRELATION_OK"
	GateVenue         Gate = "VENUE_AVAILABLE"
)

// RiskAssessment is the risk evaluator verdict
// ⭐ Invariant: Approved implies RecommendedSize > 0 and ApprovedVenues non-empty
type RiskAssessment struct {
	Approved        bool      `json:"approved"`
	RecommendedSize float64   `json:"recommended_size"`
	TradeValue      float64   `json:"trade_value"`
	Reason          string    `json:"reason"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Gate            Gate      `json:"gate,omitempty"`
	ApprovedVenues  []string  `json:"approved_venues"`
	Conditions      []string  `json:"conditions"`
	SignalQuality   float64   `json:"signal_quality"`
}
