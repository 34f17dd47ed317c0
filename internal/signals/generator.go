package signals

import (
	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/indicators"
	"github.com/wonny/tradegate/internal/patterns"
	"github.com/wonny/tradegate/pkg/logger"
)

// Params holds indicator periods used by the generator
type Params struct {
	FastMA          int
	SlowMA          int
	RSIPeriod       int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerK      float64
	StochK          int
	StochD          int
	WilliamsPeriod  int
	CCIPeriod       int
	VolumeShort     int
	VolumeLong      int
	ExtremaWindow   int
	LevelTolerance  float64
}

// DefaultParams returns the standard periods
func DefaultParams() Params {
	return Params{
		FastMA:          20,
		SlowMA:          50,
		RSIPeriod:       14,
		MACDFast:        indicators.MACDFast,
		MACDSlow:        indicators.MACDSlow,
		MACDSignal:      indicators.MACDSignal,
		BollingerPeriod: 20,
		BollingerK:      2,
		StochK:          14,
		StochD:          3,
		WilliamsPeriod:  14,
		CCIPeriod:       20,
		VolumeShort:     5,
		VolumeLong:      20,
		ExtremaWindow:   indicators.DefaultExtremaWindow,
		LevelTolerance:  indicators.DefaultClusterTolerance,
	}
}

// Verdict is the technical generator output
type Verdict struct {
	Signal     contracts.Signal   `json:"signal"`
	Available  bool               `json:"available"`
	Components []contracts.Signal `json:"components"`
	Patterns   []patterns.Pattern `json:"patterns"`

	// Values holds the latest reading of every computed indicator
	Values map[string]float64 `json:"values"`
}

// Unavailable is the verdict used when the series cannot be analysed
func Unavailable(reason string) Verdict {
	return Verdict{
		Signal: contracts.NewSignal(string(contracts.SourceTechnical), contracts.DirectionHold, 0, 0, reason),
		Values: map[string]float64{},
	}
}

// Generator converts a price series into a technical verdict
// ⭐ SSOT: technical threshold rules are applied only here
type Generator struct {
	params Params
	logger *logger.Logger
}

// NewGenerator creates a generator with the given periods
func NewGenerator(params Params, log *logger.Logger) *Generator {
	return &Generator{
		params: params,
		logger: log.WithComponent("technical"),
	}
}

// Generate evaluates every rule. Indicators whose warm-up exceeds the series
// abstain and do not enter the bucket sums.
func (g *Generator) Generate(series *contracts.PriceSeries) Verdict {
	p := g.params
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()

	v := Verdict{Values: map[string]float64{}}
	add := func(s contracts.Signal) {
		v.Components = append(v.Components, s)
	}

	fast, slow := indicators.SMA(closes, p.FastMA), indicators.SMA(closes, p.SlowMA)
	if len(fast) > 0 && len(slow) > 0 {
		v.Values["sma_fast"], v.Values["sma_slow"] = last(fast), last(slow)
		add(MovingAverageRule(last(fast), last(slow)))
	}

	if rsi := indicators.RSI(closes, p.RSIPeriod); len(rsi) > 0 {
		v.Values["rsi"] = last(rsi)
		add(RSIRule(last(rsi)))
	}

	if macd := indicators.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal); macd.Len() > 0 {
		hist := macd.Histogram
		prev := hist[len(hist)-1]
		if len(hist) > 1 {
			prev = hist[len(hist)-2]
		}
		v.Values["macd"], v.Values["macd_signal"], v.Values["macd_hist"] = last(macd.Line), last(macd.Signal), last(hist)
		add(MACDRule(prev, last(hist)))
	}

	if bb := indicators.Bollinger(closes, p.BollingerPeriod, p.BollingerK); bb.Len() > 0 {
		v.Values["percent_b"], v.Values["bandwidth"] = last(bb.PercentB), last(bb.Bandwidth)
		add(BollingerRule(last(bb.PercentB)))
	}

	if st := indicators.Stochastic(highs, lows, closes, p.StochK, p.StochD); len(st.K) > 0 {
		v.Values["stoch_k"], v.Values["stoch_d"] = last(st.K), last(st.D)
		add(StochasticRule(last(st.K), last(st.D)))
	}

	if wr := indicators.WilliamsR(highs, lows, closes, p.WilliamsPeriod); len(wr) > 0 {
		v.Values["williams_r"] = last(wr)
		add(WilliamsRule(last(wr)))
	}

	if cci := indicators.CCI(highs, lows, closes, p.CCIPeriod); len(cci) > 0 {
		v.Values["cci"] = last(cci)
		add(CCIRule(last(cci)))
	}

	if va := indicators.AnalyzeVolume(series.Volumes(), p.VolumeShort, p.VolumeLong); va != nil && len(closes) > p.VolumeShort {
		ref := closes[len(closes)-1-p.VolumeShort]
		change := 0.0
		if ref > 0 {
			change = last(closes)/ref - 1
		}
		v.Values["volume_ratio"] = va.Ratio
		add(VolumeRule(*va, change))
	}

	if len(closes) > 0 {
		levels := indicators.SupportResistance(highs, lows, p.ExtremaWindow, p.LevelTolerance)
		if s, ok := SupportResistanceRule(last(closes), levels); ok {
			add(s)
		}
	}

	v.Patterns = patterns.Detect(highs, lows, p.ExtremaWindow)
	if s, ok := PatternRule(v.Patterns, len(closes)-1); ok {
		add(s)
	}

	v.Signal, v.Available = Aggregate(v.Components)

	g.logger.WithFields(map[string]interface{}{
		"symbol":     series.Symbol,
		"bars":       series.Len(),
		"indicators": len(v.Components),
		"patterns":   len(v.Patterns),
		"direction":  v.Signal.Direction,
		"confidence": v.Signal.Confidence,
	}).Debug("Generated technical verdict")

	return v
}
