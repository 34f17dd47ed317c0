package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/portfolio"
	"github.com/wonny/tradegate/internal/riskconfig"
	"github.com/wonny/tradegate/pkg/logger"
)

// Engine runs the ordered risk gates over a composite decision.
// ⭐ SSOT: pure calculation. Snapshot, market context and limits are assembled
// by the caller; the first failing gate short-circuits.
type Engine struct {
	logger *logger.Logger
}

// NewEngine creates a risk engine. A nil logger disables logging.
func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{logger: log.WithComponent("risk")}
}

// Evaluate applies the gates in order: actionable, symbol, market conditions,
// exposure, signal quality, position size, correlation, venue.
func (e *Engine) Evaluate(cfg *riskconfig.Config, in Input) contracts.RiskAssessment {
	a := contracts.RiskAssessment{
		RiskLevel:      contracts.RiskLow,
		ApprovedVenues: []string{},
		Conditions:     []string{},
	}

	sig := in.Signal
	if sig == nil {
		return e.reject(in, a, contracts.GateActionable, "no composite signal")
	}
	a.SignalQuality = SignalQuality(sig)

	if !sig.Direction.IsActionable() {
		return e.reject(in, a, contracts.GateActionable, "no actionable signal")
	}

	if ok, reason := cfg.SymbolPermitted(in.Symbol); !ok {
		return e.reject(in, a, contracts.GateSymbol, reason)
	}

	level, notes := MarketRisk(in.Market)
	a.RiskLevel = level
	a.Conditions = append(a.Conditions, notes...)
	if level == contracts.RiskExtreme {
		return e.reject(in, a, contracts.GateMarket, "market risk is EXTREME: "+strings.Join(notes, "; "))
	}

	if in.Snapshot == nil {
		return e.reject(in, a, contracts.GateExposure, "portfolio snapshot unavailable")
	}
	exp := portfolio.ComputeExposure(*in.Snapshot)
	if exp.Equity <= 0 {
		return e.reject(in, a, contracts.GateExposure, "portfolio has no equity")
	}
	if loss := -exp.DailyPnLFraction; loss >= cfg.MaxDailyLoss {
		return e.reject(in, a, contracts.GateExposure,
			fmt.Sprintf("daily loss %.1f%% reached limit %.1f%%", loss*100, cfg.MaxDailyLoss*100))
	}
	limits := portfolio.LimitsFrom(cfg)
	if msg, breached := limits.Breach(exp, in.Symbol, in.Market.Sector); breached {
		return e.reject(in, a, contracts.GateExposure, msg)
	}

	if a.SignalQuality < cfg.MinSignalQuality {
		return e.reject(in, a, contracts.GateSignalQuality,
			fmt.Sprintf("signal quality %.2f below minimum %.2f", a.SignalQuality, cfg.MinSignalQuality))
	}

	headroom := limits.Headroom(exp, in.Symbol, in.Market.Sector)
	size, sizeNotes := PositionSize(cfg, sig.Confidence, in.Market.RealizedVolatility, level, headroom)
	tradeValue := size * exp.Equity
	if size <= 0 {
		return e.reject(in, a, contracts.GatePositionSize, "position size is zero: "+strings.Join(sizeNotes, "; "))
	}
	if tradeValue < cfg.MinTradeValue {
		return e.reject(in, a, contracts.GatePositionSize,
			fmt.Sprintf("trade value %.2f below minimum %.2f", tradeValue, cfg.MinTradeValue))
	}

	correlated := CorrelatedExposure(exp, in.Market.Correlations, cfg.CorrelationThreshold)
	switch {
	case correlated > cfg.CorrelationHighLimit:
		a.RiskLevel = a.RiskLevel.Max(contracts.RiskHigh)
		return e.reject(in, a, contracts.GateCorrelation,
			fmt.Sprintf("correlated exposure %.1f%% exceeds limit %.1f%%", correlated*100, cfg.CorrelationHighLimit*100))
	case correlated > cfg.CorrelationMediumLimit:
		a.RiskLevel = a.RiskLevel.Max(contracts.RiskMedium)
		a.Conditions = append(a.Conditions, fmt.Sprintf("correlated exposure %.1f%% (medium)", correlated*100))
	}

	venues := EligibleVenues(in.Snapshot.Venues, tradeValue)
	if len(venues) == 0 {
		return e.reject(in, a, contracts.GateVenue,
			fmt.Sprintf("no connected venue holds %.2f in quote currency", tradeValue))
	}

	a.Approved = true
	a.RecommendedSize = size
	a.TradeValue = tradeValue
	a.ApprovedVenues = venues
	a.Conditions = append(a.Conditions, sizeNotes...)
	a.Conditions = append(a.Conditions, exitConditions(sig)...)
	if len(in.Market.Returns) >= minVaRSamples {
		v := CalculateVaR(in.Market.Returns, varConfidence)
		a.Conditions = append(a.Conditions,
			fmt.Sprintf("historical VaR95 %.2f%%, CVaR95 %.2f%% per bar", v.VaR*100, v.CVaR*100))
	}
	a.Reason = fmt.Sprintf("approved %s for %.2f%% of equity", sig.Direction, size*100)

	e.logger.WithFields(map[string]interface{}{
		"symbol":      in.Symbol,
		"direction":   sig.Direction,
		"size":        size,
		"trade_value": tradeValue,
		"risk_level":  a.RiskLevel,
		"venues":      venues,
	}).Debug("Trade approved")

	return a
}

func (e *Engine) reject(in Input, a contracts.RiskAssessment, gate contracts.Gate, reason string) contracts.RiskAssessment {
	a.Approved = false
	a.RecommendedSize = 0
	a.TradeValue = 0
	a.ApprovedVenues = []string{}
	a.Gate = gate
	a.Reason = reason

	e.logger.WithFields(map[string]interface{}{
		"symbol":     in.Symbol,
		"gate":       gate,
		"reason":     reason,
		"risk_level": a.RiskLevel,
	}).Debug("Trade rejected")

	return a
}

// SignalQuality blends composite and per-source confidences.
// Unavailable sources contribute 0.
func SignalQuality(sig *contracts.CompositeSignal) float64 {
	q := qualityComposite*sig.Confidence +
		qualityTechnical*sig.SubConfidence(contracts.SourceTechnical) +
		qualitySentiment*sig.SubConfidence(contracts.SourceSentiment) +
		qualityPrediction*sig.SubConfidence(contracts.SourcePrediction)
	return contracts.Clamp01(q)
}

// MarketRisk classifies market conditions. Volatility sets the base level,
// scheduled events lift it to at least HIGH, low liquidity adds one level.
func MarketRisk(m MarketConditions) (contracts.RiskLevel, []string) {
	level := contracts.RiskLow
	var notes []string

	switch vol := m.RealizedVolatility; {
	case vol > volHighThreshold:
		level = contracts.RiskHigh
		notes = append(notes, fmt.Sprintf("high realized volatility %.1f%%", vol*100))
	case vol > volMediumThreshold:
		level = contracts.RiskMedium
		notes = append(notes, fmt.Sprintf("elevated realized volatility %.1f%%", vol*100))
	}

	if len(m.ScheduledEvents) > 0 {
		level = level.Max(contracts.RiskHigh)
		notes = append(notes, "scheduled events: "+strings.Join(m.ScheduledEvents, ", "))
	}

	if m.LowLiquidity {
		level = level.Escalate()
		notes = append(notes, "low liquidity")
	}

	return level, notes
}

// PositionSize returns the recommended fraction of equity and notes on
// which bound applied. The result lies in [0, cfg.MaxPositionSize].
func PositionSize(cfg *riskconfig.Config, confidence, vol float64, level contracts.RiskLevel, headroom float64) (float64, []string) {
	var notes []string

	if math.IsNaN(vol) || vol < 0 {
		vol = 0
	}
	factor, ok := levelSizeFactor[level]
	if !ok {
		factor = levelSizeFactor[contracts.RiskHigh]
	}

	size := cfg.MaxPositionSize *
		(0.2 + 0.8*contracts.Clamp01(confidence)) *
		math.Max(minVolFactor, 1-vol) *
		factor

	if cfg.UseKelly {
		kelly := KellyFraction(confidence, cfg.RewardRiskRatio, cfg.KellyCap)
		if kelly < size {
			size = kelly
			notes = append(notes, fmt.Sprintf("kelly bound %.2f%%", kelly*100))
		}
	}

	if headroom < size {
		size = headroom
		notes = append(notes, fmt.Sprintf("capped by exposure headroom %.2f%%", headroom*100))
	}

	return contracts.Clamp(size, 0, cfg.MaxPositionSize), notes
}

// KellyFraction is (b·p − q)/b with q = 1−p, floored at 0 and capped at limit.
// A non-positive reward/risk ratio yields 0.
func KellyFraction(p, b, limit float64) float64 {
	if b <= 0 || math.IsNaN(b) || math.IsNaN(p) {
		return 0
	}
	p = contracts.Clamp01(p)
	k := (b*p - (1 - p)) / b
	return contracts.Clamp(k, 0, limit)
}

// CorrelatedExposure sums the equity fraction held in symbols whose absolute
// correlation with the candidate exceeds threshold.
func CorrelatedExposure(exp contracts.PortfolioExposure, correlations map[string]float64, threshold float64) float64 {
	symbols := make([]string, 0, len(correlations))
	for s := range correlations {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var total float64
	for _, s := range symbols {
		if math.Abs(correlations[s]) > threshold {
			total += exp.ByAsset[strings.ToUpper(s)]
		}
	}
	return total
}

// EligibleVenues lists connected venues whose quote balance covers tradeValue, by name.
func EligibleVenues(venues []contracts.VenueAccount, tradeValue float64) []string {
	need := decimal.NewFromFloat(tradeValue)
	out := []string{}
	for _, v := range venues {
		if v.Connected && v.QuoteBalance().GreaterThanOrEqual(need) {
			out = append(out, v.Name)
		}
	}
	sort.Strings(out)
	return out
}

func exitConditions(sig *contracts.CompositeSignal) []string {
	if sig.Exits == nil {
		return nil
	}
	return []string{
		fmt.Sprintf("stop-loss at %.4f (%.2f%%)", sig.Exits.StopLossPrice, sig.Exits.StopLossDistance*100),
		fmt.Sprintf("take-profit at %.4f (%.2f%%)", sig.Exits.TakeProfitPrice, sig.Exits.TakeProfitDistance*100),
	}
}
